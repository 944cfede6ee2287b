package warden

import "testing"

const sampleTrace = `goroutine 1 [running]:
main.typeText(0x1234abcd, 0x56)
	/home/robot/worker/main.go:42 +0x1a2
main.runStep(0xc000012345)
	/home/robot/worker/main.go:17 +0x88
main.main()
	/home/robot/worker/main.go:9 +0x22
`

func TestFingerprint_StableAcrossRuns(t *testing.T) {
	report := ErrorReport{
		Category:    CategoryApplication,
		ProcessName: "TestProcess",
		StackTrace:  sampleTrace,
	}

	first := Fingerprint(report)
	second := Fingerprint(report)

	if first == "" {
		t.Fatal("Fingerprint should not be empty")
	}
	if len(first) != 32 {
		t.Errorf("Fingerprint length = %d, want 32", len(first))
	}
	if first != second {
		t.Errorf("Fingerprint not stable: %q vs %q", first, second)
	}
}

func TestFingerprint_IgnoresVariableData(t *testing.T) {
	base := ErrorReport{
		Category:    CategoryApplication,
		ProcessName: "TestProcess",
		StackTrace:  sampleTrace,
		Message:     "failed at 12:01:02",
	}
	changed := base
	changed.Message = "failed at 13:45:00"
	changed.ReportID = "different"
	changed.RetryCount = "2"

	if Fingerprint(base) != Fingerprint(changed) {
		t.Error("Fingerprint should ignore message, report ID, and retry count")
	}
}

func TestFingerprint_IgnoresAddressesAndLineNumbers(t *testing.T) {
	other := ErrorReport{
		Category:    CategoryApplication,
		ProcessName: "TestProcess",
		StackTrace: `goroutine 7 [running]:
main.typeText(0xdeadbeef, 0x99)
	/home/other/worker/main.go:142 +0x9f1
main.runStep(0xc0009876ab)
	/home/other/worker/main.go:117 +0x11
main.main()
	/home/other/worker/main.go:19 +0x2
`,
	}
	base := ErrorReport{
		Category:    CategoryApplication,
		ProcessName: "TestProcess",
		StackTrace:  sampleTrace,
	}

	if Fingerprint(base) != Fingerprint(other) {
		t.Error("Fingerprint should normalize addresses, offsets, and line numbers")
	}
}

func TestFingerprint_DiffersByCategoryAndProcess(t *testing.T) {
	base := ErrorReport{Category: CategoryApplication, ProcessName: "A", StackTrace: sampleTrace}

	byCategory := base
	byCategory.Category = CategoryBusiness
	if Fingerprint(base) == Fingerprint(byCategory) {
		t.Error("Fingerprint should differ by category")
	}

	byProcess := base
	byProcess.ProcessName = "B"
	if Fingerprint(base) == Fingerprint(byProcess) {
		t.Error("Fingerprint should differ by process name")
	}
}

func TestFingerprint_EmptyTrace(t *testing.T) {
	report := ErrorReport{Category: CategoryApplication, ProcessName: "TestProcess"}
	if Fingerprint(report) == "" {
		t.Error("Fingerprint should work without a stack trace")
	}
}

func TestTopFrames_ExtractsFunctionNames(t *testing.T) {
	frames := topFrames(sampleTrace, 3)

	want := []string{"main.typeText", "main.runStep", "main.main"}
	if len(frames) != len(want) {
		t.Fatalf("topFrames returned %v, want %v", frames, want)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}
}

func TestTopFrames_LimitsFrameCount(t *testing.T) {
	frames := topFrames(sampleTrace, 2)
	if len(frames) != 2 {
		t.Errorf("topFrames should cap at 2 frames, got %d", len(frames))
	}
}
