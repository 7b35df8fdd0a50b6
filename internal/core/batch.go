package core

import "github.com/google/uuid"

// ArtType identifies the kind of entity an art-getter task fetches artwork
// for.
type ArtType string

const (
	ArtAlbum  ArtType = "album"
	ArtArtist ArtType = "artist"
	ArtLabel  ArtType = "label"
)

// Codec names a compressed/lossless audio encoding. Used by CodecMap
// batches for converter-style tasks.
type Codec string

const (
	CodecFLAC    Codec = "flac"
	CodecWAV     Codec = "wav"
	CodecMP3     Codec = "mp3"
	CodecMP4     Codec = "mp4"
	CodecOGG     Codec = "ogg"
	CodecWMA     Codec = "wma"
	CodecAPE     Codec = "ape"
	CodecAIFF    Codec = "aiff"
	CodecUnknown Codec = "unknown"
)

// Batch is a tagged union of the work-item shapes a task may receive,
// replacing the dynamic dict-based payloads of the reference
// implementation (see spec.md §9). Exactly one of the fields is set;
// Kind reports which.
type Batch struct {
	Kind BatchKind

	// FileIDs is set when Kind == BatchFileIDs.
	FileIDs []string
	// TrackIDs is set when Kind == BatchTrackIDs.
	TrackIDs []string
	// ArtMap is set when Kind == BatchArtMap: mbid -> entity kind.
	ArtMap map[string]ArtType
	// CodecMap is set when Kind == BatchCodecMap: file id -> source codec.
	CodecMap map[string]Codec
}

// BatchKind discriminates the variant held by a Batch.
type BatchKind int

const (
	// BatchNone indicates an empty batch (e.g. the importer, which
	// discovers its own inputs and accepts batch=nil).
	BatchNone BatchKind = iota
	BatchFileIDs
	BatchTrackIDs
	BatchArtMap
	BatchCodecMap
)

// Empty reports whether the batch carries no work items. Per spec.md §8, a
// task given an empty batch must complete immediately with progress=100 and
// no side effects.
func (b Batch) Empty() bool {
	switch b.Kind {
	case BatchNone:
		return true
	case BatchFileIDs:
		return len(b.FileIDs) == 0
	case BatchTrackIDs:
		return len(b.TrackIDs) == 0
	case BatchArtMap:
		return len(b.ArtMap) == 0
	case BatchCodecMap:
		return len(b.CodecMap) == 0
	default:
		return true
	}
}

// Len returns the number of work items carried by the batch, used for
// progress accounting.
func (b Batch) Len() int {
	switch b.Kind {
	case BatchFileIDs:
		return len(b.FileIDs)
	case BatchTrackIDs:
		return len(b.TrackIDs)
	case BatchArtMap:
		return len(b.ArtMap)
	case BatchCodecMap:
		return len(b.CodecMap)
	default:
		return 0
	}
}

// NewFileIDBatch builds a Batch carrying file IDs, chunked by callers per
// scanner.scanner_batch_size.
func NewFileIDBatch(ids []string) Batch {
	return Batch{Kind: BatchFileIDs, FileIDs: ids}
}

// NewArtMapBatch builds a Batch carrying an mbid -> ArtType map, as emitted
// by the Scanner's artwork scan.
func NewArtMapBatch(m map[string]ArtType) Batch {
	return Batch{Kind: BatchArtMap, ArtMap: m}
}

// EmittedTask is the ephemeral record a Processor produces to request that
// a Task be scheduled (spec.md §3 "Emitted-task record").
type EmittedTask struct {
	TaskName string
	Batch    Batch
	Kwargs   map[string]any

	// CorrelationID identifies this hand-off for log tracing from
	// ProcessorLoop through TaskManager. Assigned by the processor that
	// emits the task; see core.NewCorrelationID.
	CorrelationID string
}

// NewCorrelationID returns a fresh correlation ID for an EmittedTask,
// backed by google/uuid.
func NewCorrelationID() string {
	return uuid.NewString()
}
