package command

import (
	"strconv"
	"strings"
)

// Kind identifies a transform.
type Kind string

// Supported transform kinds.
const (
	KindThumbnail            Kind = "thumbnail"
	KindWatermarkedThumbnail Kind = "watermarked-thumbnail"
	KindScaledThumbnail      Kind = "scaled-thumbnail"
	KindPreviewClip          Kind = "preview-clip"
	KindRemuxStream          Kind = "remux-stream"
	KindProbe                Kind = "probe"
	KindToolVersion          Kind = "tool-version"
)

// Kinds lists every transform kind, in a stable order.
var Kinds = []Kind{
	KindThumbnail,
	KindWatermarkedThumbnail,
	KindScaledThumbnail,
	KindPreviewClip,
	KindRemuxStream,
	KindProbe,
	KindToolVersion,
}

// Tool is the external binary a Command runs.
type Tool string

// External tools.
const (
	ToolFFmpeg  Tool = "ffmpeg"
	ToolFFprobe Tool = "ffprobe"
)

const (
	stdinInput   = "pipe:0"
	stdoutOutput = "pipe:1"
)

// Request is an immutable transform request.
type Request struct {
	Kind       Kind
	Source     string
	Credential string
	Params     Params

	fromStdin bool
}

// WithStdinInput returns a copy of r whose built command reads the source
// from standard input instead of fetching it itself.
func (r Request) WithStdinInput() Request {
	r.fromStdin = true
	return r
}

// ReadsStdin reports whether the built command expects its input on stdin.
func (r Request) ReadsStdin() bool {
	return r.fromStdin
}

func (r Request) input() string {
	if r.fromStdin {
		return stdinInput
	}
	return r.Source
}

// Command is a fully built invocation of an external tool.
type Command struct {
	Tool Tool
	Args []string
}

// String renders the command for logs.
func (c Command) String() string {
	return string(c.Tool) + " " + strings.Join(c.Args, " ")
}

// ContentType returns the MIME type of a successful transform's output.
func ContentType(k Kind) string {
	switch k {
	case KindThumbnail, KindWatermarkedThumbnail, KindScaledThumbnail:
		return "image/jpeg"
	case KindPreviewClip:
		return "video/mp4"
	case KindRemuxStream:
		return "video/webm"
	case KindProbe:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Build turns a request into the tool invocation. It has no side effects:
// identical requests always produce identical commands.
func Build(r Request) (Command, error) {
	if r.Kind != KindToolVersion && strings.TrimSpace(r.Source) == "" && !r.fromStdin {
		return Command{}, &ParamError{Param: "url", Reason: "is required"}
	}

	switch r.Kind {
	case KindThumbnail:
		return thumbnail(r, nil), nil
	case KindScaledThumbnail:
		factor := valueOr(r.Params.Scale, DefaultScale)
		return thumbnail(r, &factor), nil
	case KindWatermarkedThumbnail:
		if r.Params.Watermark == "" {
			return Command{}, &ParamError{Param: "watermark", Reason: "is required"}
		}
		return watermarkedThumbnail(r), nil
	case KindPreviewClip:
		return previewClip(r), nil
	case KindRemuxStream:
		return remuxStream(r), nil
	case KindProbe:
		return Command{Tool: ToolFFprobe, Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			r.input(),
		}}, nil
	case KindToolVersion:
		return Command{Tool: ToolFFmpeg, Args: []string{"-version"}}, nil
	default:
		return Command{}, &ParamError{Param: "kind", Value: string(r.Kind), Reason: "unknown transform"}
	}
}

// prelude is shared by every ffmpeg transform: quiet banner, errors only on stderr.
func prelude() []string {
	return []string{"-hide_banner", "-loglevel", "error"}
}

func inputArgs(r Request) []string {
	var args []string
	if r.Params.Seek != "" {
		args = append(args, "-ss", r.Params.Seek)
	}
	return append(args, "-i", r.input())
}

// frameSelect picks the first scene change after a minimum elapsed time.
// A fixed seek makes selection unnecessary.
func frameSelect(p Params) []Filter {
	if p.Seek != "" {
		return nil
	}
	return []Filter{NewFilter("select", Option{Value: "gte(t,1)*gt(scene,0.4)"})}
}

// fitScale scales to the requested box preserving aspect ratio. even forces
// dimensions divisible by two, as required by yuv420p video encoders.
func fitScale(width, height int, even bool) []Filter {
	keep := "-1"
	if even {
		keep = "-2"
	}
	switch {
	case width > 0 && height > 0:
		opts := []Option{
			Opt("w", strconv.Itoa(width)),
			Opt("h", strconv.Itoa(height)),
			Opt("force_original_aspect_ratio", "decrease"),
		}
		if even {
			opts = append(opts, Opt("force_divisible_by", "2"))
		}
		return []Filter{NewFilter("scale", opts...)}
	case width > 0:
		return []Filter{NewFilter("scale", Opt("w", strconv.Itoa(width)), Opt("h", keep))}
	case height > 0:
		return []Filter{NewFilter("scale", Opt("w", keep), Opt("h", strconv.Itoa(height)))}
	default:
		return nil
	}
}

func imageOutput() []string {
	return []string{"-frames:v", "1", "-f", "image2", "-c:v", "mjpeg", stdoutOutput}
}

func thumbnail(r Request, factor *float64) Command {
	filters := frameSelect(r.Params)
	scale := fitScale(r.Params.Width, r.Params.Height, false)
	if scale == nil && factor != nil {
		scale = []Filter{NewFilter("scale",
			Opt("w", "iw*"+formatFloat(*factor)),
			Opt("h", "-1"))}
	}
	filters = append(filters, scale...)

	args := append(prelude(), inputArgs(r)...)
	if len(filters) > 0 {
		args = append(args, "-vf", Chain{Filters: filters}.String())
	}
	args = append(args, imageOutput()...)
	return Command{Tool: ToolFFmpeg, Args: args}
}

// overlayGraph composes the watermark stages: scale the mark relative to the
// smaller frame side, blend at alpha, pin it to the bottom-right corner inset
// by offset, then fit the composite into the requested box.
func overlayGraph(pre []Filter, p Params, offset float64, final []Filter) Graph {
	scale := formatFloat(valueOr(p.Scale, DefaultScale))
	alpha := formatFloat(valueOr(p.Alpha, DefaultAlpha))
	inset := formatFloat(offset)

	base := "0:v"
	var g Graph
	if len(pre) > 0 {
		g = append(g, Chain{Inputs: []string{"0:v"}, Filters: pre, Outputs: []string{"frame"}})
		base = "frame"
	}

	g = append(g,
		Chain{
			Inputs: []string{"1:v", base},
			Filters: []Filter{NewFilter("scale2ref",
				Opt("w", "min(main_w,main_h)*"+scale),
				Opt("h", "ow/a"))},
			Outputs: []string{"wm", "ref"},
		},
		Chain{
			Inputs: []string{"wm"},
			Filters: []Filter{
				NewFilter("format", Option{Value: "rgba"}),
				NewFilter("colorchannelmixer", Opt("aa", alpha)),
			},
			Outputs: []string{"wma"},
		},
		Chain{
			Inputs: []string{"ref", "wma"},
			Filters: append([]Filter{NewFilter("overlay",
				Opt("x", "main_w-overlay_w-min(main_w,main_h)*"+inset),
				Opt("y", "main_h-overlay_h-min(main_w,main_h)*"+inset))},
				final...),
			Outputs: []string{"out"},
		},
	)
	return g
}

func watermarkedThumbnail(r Request) Command {
	offset := valueOr(r.Params.Offset, DefaultWatermarkOffset)
	g := overlayGraph(frameSelect(r.Params), r.Params, offset, fitScale(r.Params.Width, r.Params.Height, false))

	args := append(prelude(), inputArgs(r)...)
	args = append(args,
		"-i", r.Params.Watermark,
		"-filter_complex", g.String(),
		"-map", "[out]",
	)
	args = append(args, imageOutput()...)
	return Command{Tool: ToolFFmpeg, Args: args}
}

// previewSample keeps every 10th frame and re-times the survivors so the
// clip plays back as a fast-forward.
func previewSample() []Filter {
	return []Filter{
		NewFilter("select", Option{Value: "not(mod(n,10))"}),
		NewFilter("setpts", Option{Value: "N/FRAME_RATE/TB"}),
	}
}

func previewClip(r Request) Command {
	args := append(prelude(), inputArgs(r)...)
	scale := fitScale(r.Params.Width, r.Params.Height, true)

	if r.Params.Watermark != "" {
		offset := valueOr(r.Params.Offset, DefaultPreviewOffset)
		g := overlayGraph(previewSample(), r.Params, offset, scale)
		args = append(args,
			"-i", r.Params.Watermark,
			"-filter_complex", g.String(),
			"-map", "[out]",
		)
	} else {
		args = append(args, "-vf", Chain{Filters: append(previewSample(), scale...)}.String())
	}

	args = append(args,
		"-an",
		"-frames:v", "150",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		stdoutOutput,
	)
	return Command{Tool: ToolFFmpeg, Args: args}
}

func remuxStream(r Request) Command {
	filters := append([]Filter{NewFilter("fps", Option{Value: "24"})}, fitScale(r.Params.Width, r.Params.Height, true)...)

	args := append(prelude(), inputArgs(r)...)
	args = append(args,
		"-vf", Chain{Filters: filters}.String(),
		"-c:v", "libvpx",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-b:v", "1M",
		"-c:a", "libvorbis",
		"-f", "webm",
		stdoutOutput,
	)
	return Command{Tool: ToolFFmpeg, Args: args}
}
