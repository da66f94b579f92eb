package domain

import "testing"

func TestFramePatternParse(t *testing.T) {
	p := CompileFramePattern("test")

	cases := []struct {
		name        string
		wantRun     uint16
		wantFrame   uint32
		wantOK      bool
	}{
		{"test_01_00001.tif", 1, 1, true},
		{"test_99_99999.tif", 99, 99999, true},
		{"other_01_00001.tif", 0, 0, false},
		{"test_1_00001.tif", 0, 0, false},
		{"test_01_0001.tif", 0, 0, false},
		{"test_01_00001.png", 0, 0, false},
		{"test_01_00001.tif.bak", 0, 0, false},
	}
	for _, c := range cases {
		run, frame, ok := p.Parse(c.name)
		if ok != c.wantOK {
			t.Errorf("Parse(%q) ok = %v, want %v", c.name, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if run != c.wantRun || frame != c.wantFrame {
			t.Errorf("Parse(%q) = (%d, %d), want (%d, %d)", c.name, run, frame, c.wantRun, c.wantFrame)
		}
	}
}

func TestFrameNameRoundTrip(t *testing.T) {
	p := CompileFramePattern("test")
	name := FrameName("test", 7, 42)
	if name != "test_07_00042.tif" {
		t.Fatalf("FrameName = %q", name)
	}
	run, frame, ok := p.Parse(name)
	if !ok || run != 7 || frame != 42 {
		t.Errorf("round-trip Parse(%q) = (%d, %d, %v)", name, run, frame, ok)
	}
}

func TestMatchesFrameGrammar(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"test_01_00001.tif", true},
		{"anything_99_12345.tif", true},
		{"test_01_00001.lz4", false},
		{"test_1_00001.tif", false},
		{"_01_00001.tif", false},
	}
	for _, c := range cases {
		if got := MatchesFrameGrammar(c.name); got != c.want {
			t.Errorf("MatchesFrameGrammar(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
