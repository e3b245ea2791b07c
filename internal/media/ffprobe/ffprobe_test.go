package ffprobe

import "testing"

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1080, Height: 1920, FrameRate: "30000/1001"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "42.5",
			Size:     "1000",
		},
	}
	if !result.HasVideoStream() {
		t.Fatal("expected a video stream")
	}
	if !result.HasAudioStream() {
		t.Fatal("expected an audio stream")
	}
	width, height := result.Resolution()
	if width != 1080 || height != 1920 {
		t.Fatalf("unexpected resolution %dx%d", width, height)
	}
	rate := result.FrameRate()
	if rate < 29.9 || rate > 30.0 {
		t.Fatalf("unexpected frame rate %v", rate)
	}
	if result.DurationSeconds() != 42.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultDurationFallsBackToVideoStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Duration: "12.25"},
		},
	}
	if result.DurationSeconds() != 12.25 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.FrameRate() != 0 {
		t.Fatalf("expected frame rate 0, got %v", result.FrameRate())
	}
}
