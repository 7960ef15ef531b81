package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Capabilities describes the hardware-acceleration surface detected for one
// ffmpeg binary. Probed once per daemon process, never per request.
type Capabilities struct {
	// Accelerated is true when CUDA and the h264_nvenc encoder are both
	// present. Serving encode requests without it is refused.
	Accelerated bool
	ScaleNPP    bool
	ScaleCUDA   bool
	// Detail explains a failed probe.
	Detail string
}

// ProbeAccelerator inspects the ffmpeg binary's hwaccel, encoder, and filter
// lists. Mirrors the readiness check of the encoder service: CUDA must be a
// listed hwaccel and h264_nvenc a listed encoder.
func ProbeAccelerator(ctx context.Context, ffmpegBinary string) Capabilities {
	caps := Capabilities{}

	hwaccels, err := ffmpegList(ctx, ffmpegBinary, "-hwaccels")
	if err != nil {
		caps.Detail = fmt.Sprintf("probe hwaccels: %v", err)
		return caps
	}
	if !strings.Contains(hwaccels, "cuda") {
		caps.Detail = "ffmpeg reports no cuda hwaccel"
		return caps
	}

	encoders, err := ffmpegList(ctx, ffmpegBinary, "-encoders")
	if err != nil {
		caps.Detail = fmt.Sprintf("probe encoders: %v", err)
		return caps
	}
	if !strings.Contains(encoders, "h264_nvenc") {
		caps.Detail = "ffmpeg reports no h264_nvenc encoder"
		return caps
	}

	caps.Accelerated = true

	// Scaler availability is advisory; a missing GPU scaler only downgrades
	// scaling to the CPU path.
	if filters, err := ffmpegList(ctx, ffmpegBinary, "-filters"); err == nil {
		caps.ScaleNPP = strings.Contains(filters, "scale_npp")
		caps.ScaleCUDA = strings.Contains(filters, "scale_cuda")
	}
	return caps
}

// SelectScaler resolves a configured scaler preference against the detected
// capability set. Preferences degrade to the next available GPU scaler and
// finally to the CPU path.
func (c Capabilities) SelectScaler(pref string) string {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case "npp":
		if c.ScaleNPP {
			return "npp"
		}
		if c.ScaleCUDA {
			return "cuda"
		}
		return "cpu"
	case "cuda":
		if c.ScaleCUDA {
			return "cuda"
		}
		if c.ScaleNPP {
			return "npp"
		}
		return "cpu"
	case "cpu":
		return "cpu"
	default: // auto
		if c.ScaleNPP {
			return "npp"
		}
		if c.ScaleCUDA {
			return "cuda"
		}
		return "cpu"
	}
}

func ffmpegList(ctx context.Context, binary, flag string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", flag)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.ToLower(string(out)), nil
}
