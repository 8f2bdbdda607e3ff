package audiobook

import (
	"errors"
	"fmt"

	"m4bmerge/internal/outcome"
)

var (
	// ErrUnsupportedCodec reports a batch with no codec the output container can hold.
	ErrUnsupportedCodec = errors.New("unsupported codec")
	// ErrBitrateRequired reports a lossy target without a bitrate.
	ErrBitrateRequired = errors.New("bitrate required")
)

// Target is the codec every file of a merge ends up in. A bitrate is carried
// only for lossy codecs.
type Target struct {
	codec      Codec
	bitrate    int
	hasBitrate bool
}

// NewTarget builds a Target. Lossy codecs need a positive bitrate; lossless
// codecs drop any bitrate given.
func NewTarget(codec Codec, bitrate int) (Target, error) {
	if !codec.IsSupported() {
		return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	if codec.IsLossless() {
		return Target{codec: codec}, nil
	}
	if bitrate <= 0 {
		return Target{}, fmt.Errorf("%w: %s", ErrBitrateRequired, codec)
	}
	return Target{codec: codec, bitrate: bitrate, hasBitrate: true}, nil
}

func (t Target) Codec() Codec { return t.codec }

// Bitrate returns the kbps value and whether one is set.
func (t Target) Bitrate() (int, bool) { return t.bitrate, t.hasBitrate }

func (t Target) String() string {
	if t.hasBitrate {
		return fmt.Sprintf("%s %dk", t.codec, t.bitrate)
	}
	return t.codec.String()
}

// Override is an explicit user choice. The zero Codec means no override; a
// zero Bitrate means no bitrate was given.
type Override struct {
	Codec   Codec
	Bitrate int
}

// SelectTarget decides the single codec for a batch.
//
// An override codec wins outright. Otherwise the most common supported codec
// among sources is chosen, ties going to the codec seen first, and a lossy
// choice takes the highest bitrate in its group so no file is downgraded.
func SelectTarget(sources []Source, override Override) outcome.Outcome[Target] {
	if override.Codec != "" {
		return selectOverride(override)
	}

	type group struct {
		codec   Codec
		count   int
		bitrate int
	}
	var groups []*group
	index := make(map[Codec]*group)
	for _, src := range sources {
		if !src.Codec().IsSupported() {
			continue
		}
		key := src.Codec().Canonical()
		g, ok := index[key]
		if !ok {
			g = &group{codec: src.Codec()}
			index[key] = g
			groups = append(groups, g)
		}
		g.count++
		if src.Bitrate() > g.bitrate {
			g.bitrate = src.Bitrate()
		}
	}

	if len(groups) == 0 {
		return outcome.Err[Target]("Input codec is not supported in output container, specify a codec to use", ErrUnsupportedCodec)
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if g.count > best.count {
			best = g
		}
	}

	bitrate := best.bitrate
	if best.codec.IsLossy() && bitrate <= 0 {
		bitrate = override.Bitrate
	}
	target, err := NewTarget(best.codec, bitrate)
	if err != nil {
		if errors.Is(err, ErrBitrateRequired) {
			return outcome.Err[Target](fmt.Sprintf("Bitrate of the %s inputs is unknown, specify a bitrate to use", best.codec), err)
		}
		return outcome.Err[Target]("Unable to choose an output codec", err)
	}
	return outcome.Ok(target)
}

func selectOverride(override Override) outcome.Outcome[Target] {
	codec := override.Codec
	if !codec.IsSupported() {
		return outcome.Err[Target](fmt.Sprintf("Codec %s is not supported in output container", codec), ErrUnsupportedCodec)
	}
	if codec.IsLossy() && override.Bitrate <= 0 {
		return outcome.Err[Target]("Bitrate must be specified when specifying lossy codecs", ErrBitrateRequired)
	}
	target, err := NewTarget(codec, override.Bitrate)
	if err != nil {
		return outcome.Err[Target]("Unable to use the requested codec", err)
	}
	return outcome.Ok(target)
}

// ExtensionFor picks the extension of the temporary file src is converted
// into. Files that started as m4b stay in the MP4 family whatever the codec.
func ExtensionFor(src Source, codec Codec) (string, error) {
	if src.IsContainerM4B() {
		return ".mp4", nil
	}
	ext, ok := codec.Extension()
	if !ok {
		return "", fmt.Errorf("temporary extension: %w: %s", ErrUnsupportedCodec, codec)
	}
	return ext, nil
}
