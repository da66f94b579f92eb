package domain

import "fmt"

// TaskKey identifies one set of frames within one run. It is the unit of
// scheduling handed from the index to the task queue and on to a worker.
//
// SetNumber is the frame number of the first frame in the set, e.g. for a
// set size of 100 the sets of a run start at 1, 101, 201, ...
type TaskKey struct {
	Run       uint16
	SetNumber uint32
}

// String renders the key as "run/setNumber" for logging.
func (k TaskKey) String() string {
	return fmt.Sprintf("%02d/%05d", k.Run, k.SetNumber)
}

// Less gives TaskKey a total order by (Run, SetNumber), matching the
// ordering the persistent index and the initial scan rely on.
func (k TaskKey) Less(other TaskKey) bool {
	if k.Run != other.Run {
		return k.Run < other.Run
	}
	return k.SetNumber < other.SetNumber
}

// SetNumberFor computes the setNumber that owns frameNumber for a given
// setSize: the frame numbers [setNumber, setNumber+setSize) all belong to
// the same set, with setNumber beginning the run at 1.
func SetNumberFor(frameNumber, setSize uint32) uint32 {
	return ((frameNumber-1)/setSize)*setSize + 1
}

// KeyFor computes the TaskKey that owns (run, frameNumber) for a given
// setSize.
func KeyFor(run uint16, frameNumber, setSize uint32) TaskKey {
	return TaskKey{Run: run, SetNumber: SetNumberFor(frameNumber, setSize)}
}
