package models

// SourceType identifies which tracker catalog endpoint a fetch came from
type SourceType string

const (
	SourceTypeArtist  SourceType = "artist"
	SourceTypeCollage SourceType = "collage"
)

// ParseSourceType converts a CLI/user supplied value into a SourceType
func ParseSourceType(s string) (SourceType, bool) {
	switch SourceType(s) {
	case SourceTypeArtist:
		return SourceTypeArtist, true
	case SourceTypeCollage:
		return SourceTypeCollage, true
	default:
		return "", false
	}
}

// ReleaseTypeAlbum is the tracker code for "Original Release/Album"
const ReleaseTypeAlbum = 1

// Media classifiers accepted by the variant selector
const (
	MediaCD  = "CD"
	MediaWEB = "WEB"
)

// FormatMP3 is the only format ever selected
const FormatMP3 = "MP3"

// Encoding classifiers accepted by the variant selector
const (
	EncodingV0  = "V0 (VBR)"
	Encoding320 = "320"
)
