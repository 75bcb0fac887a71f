package image

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"inviteai/internal/domain"
)

// DefaultNegativePrompt lists artefacts portrait edits should avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted face, extra fingers, extra limbs, deformed hands, text, watermark, oversaturated"

var titleCaser = cases.Title(language.English)

var roleSubjects = map[string]string{
	"bride":  "the bride",
	"groom":  "the groom",
	"couple": "the couple",
	"family": "the family",
	"guest":  "the guest",
}

// BuildPrompt composes the instruction for one unit. The variation index is
// part of the text so vendors that cache by prompt return distinct images.
func BuildPrompt(style, role string, quality domain.Quality, index, total int) string {
	style = strings.TrimSpace(style)
	subject, ok := roleSubjects[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		subject = "the people"
	}

	lines := []string{
		fmt.Sprintf("Transform this photo of %s into a %s style wedding invitation portrait.", subject, titleCaser.String(style)),
		facePreservation(quality),
		"Keep the composition elegant with soft lighting and room for invitation text.",
	}
	if total > 1 {
		lines = append(lines, fmt.Sprintf("Variation %d of %d: choose a distinct pose framing and background detail from the other variations.", index+1, total))
	}
	return strings.Join(lines, "\n")
}

func facePreservation(q domain.Quality) string {
	switch q {
	case domain.QualityHigh:
		return "Preserve every facial feature exactly: face shape, eyes, nose, lips, skin tone and hairline must match the reference."
	case domain.QualityMedium:
		return "Keep the faces clearly recognisable and close to the reference photo."
	default:
		return "Keep the overall likeness of the people in the reference photo."
	}
}

// Seed derives a stable positive seed from the unit identity.
func Seed(values ...any) int {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	value := int(binary.BigEndian.Uint32(sum[:4]) % 2147483647)
	if value <= 0 {
		value = int(binary.BigEndian.Uint32(sum[4:8])%2147483646) + 1
	}
	return value
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "":
		return "image/png"
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return "image/png"
	}
}
