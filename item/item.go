// Package item defines the tagged-variant payload that flows through the
// load and preprocess stages of the pipeline.
package item

import "fmt"

// Kind identifies which variant a DataItem holds.
type Kind int

const (
	// KindImage holds raw pixel data.
	KindImage Kind = iota
	// KindText holds decoded text.
	KindText
	// KindOpaque holds an arbitrary payload whose structure is known only
	// to the loader/processor pair that produced and consumes it.
	KindOpaque
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Image holds decoded pixel data. Bytes must have length Width*Height*Channels.
type Image struct {
	Width    int
	Height   int
	Channels int
	Bytes    []byte
}

// DataItem is the payload produced by a loader and consumed by a processor.
// Exactly one of Image, Text or Opaque is meaningful, selected by Kind.
//
// A DataItem is owned by exactly one pipeline stage at a time: producer,
// loaded-queue, processor, processed-queue, or the caller's batch. When a
// DataItem is placed in the cache it is shared by pointer (see cache.LRU);
// callers downstream of the cache must treat it as read-only and call Clone
// if they need to mutate it in place.
type DataItem struct {
	Kind Kind

	Image Image
	Text  string

	Opaque any
}

// NewImage constructs an Image-kind DataItem and validates the buffer length.
func NewImage(width, height, channels int, bytes []byte) (*DataItem, error) {
	want := width * height * channels
	if len(bytes) != want {
		return nil, fmt.Errorf("item: image buffer has %d bytes, want %d (%dx%dx%d)",
			len(bytes), want, width, height, channels)
	}
	return &DataItem{
		Kind: KindImage,
		Image: Image{
			Width:    width,
			Height:   height,
			Channels: channels,
			Bytes:    bytes,
		},
	}, nil
}

// NewText constructs a Text-kind DataItem.
func NewText(text string) *DataItem {
	return &DataItem{Kind: KindText, Text: text}
}

// NewOpaque constructs an Opaque-kind DataItem wrapping an arbitrary payload.
func NewOpaque(payload any) *DataItem {
	return &DataItem{Kind: KindOpaque, Opaque: payload}
}

// Clone returns a deep copy of the DataItem. Processors that must mutate an
// item obtained from the cache (rather than treat it as read-only) should
// clone it first.
func (d *DataItem) Clone() *DataItem {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Kind == KindImage && d.Image.Bytes != nil {
		clone.Image.Bytes = make([]byte, len(d.Image.Bytes))
		copy(clone.Image.Bytes, d.Image.Bytes)
	}
	return &clone
}

// Equal reports whether two DataItems hold logically equal payloads. It is
// used by tests to compare cache hits against the originally loaded item.
func (d *DataItem) Equal(other *DataItem) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case KindImage:
		if d.Image.Width != other.Image.Width ||
			d.Image.Height != other.Image.Height ||
			d.Image.Channels != other.Image.Channels ||
			len(d.Image.Bytes) != len(other.Image.Bytes) {
			return false
		}
		for i := range d.Image.Bytes {
			if d.Image.Bytes[i] != other.Image.Bytes[i] {
				return false
			}
		}
		return true
	case KindText:
		return d.Text == other.Text
	default:
		return fmt.Sprintf("%v", d.Opaque) == fmt.Sprintf("%v", other.Opaque)
	}
}
