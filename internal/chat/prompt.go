package chat

import (
	"fmt"
	"strings"

	"github.com/webdedesign/vergiai/internal/retrieval"
)

// DefaultGroundedPrompt precedes the retrieved passages.
const DefaultGroundedPrompt = `Sen Türk vergi mevzuatı konusunda uzman bir asistansın.
Yalnızca aşağıdaki belge parçalarına dayanarak cevap ver. Cevabında hangi belgenin
hangi sayfasından yararlandığını belirt. Belgelerde cevap yoksa bunu açıkça söyle.

BELGELER:`

// DefaultFallbackPrompt is used when no passage clears the score floor.
const DefaultFallbackPrompt = `Sen Türk vergi mevzuatı konusunda uzman bir asistansın.
Yüklenen belgelerde bu soruyla ilgili bir bölüm bulunamadı. Genel bilgine dayanarak
kısa ve dikkatli bir cevap ver ve cevabın belgelere dayanmadığını belirt.`

// PageLabel is the word printed before page numbers.
const PageLabel = "Sayfa"

// GroundingBlock renders passages as "[document - Sayfa N]" tagged sections.
func GroundingBlock(result retrieval.Result) string {
	var b strings.Builder
	for _, p := range result.Passages {
		fmt.Fprintf(&b, "\n[%s - %s %d]\n%s\n", p.Citation.Document, PageLabel, p.Citation.Page, p.Text)
	}
	return b.String()
}

// SystemPrompt embeds the grounding block verbatim, or falls back to the
// ungrounded persona when there is nothing to ground on.
func SystemPrompt(grounded, fallback string, result retrieval.Result) string {
	if result.Empty() {
		return fallback
	}
	return grounded + "\n" + GroundingBlock(result)
}

// FormatSources renders citations as "document (Sayfa N) | ...".
func FormatSources(citations []retrieval.Citation) string {
	parts := make([]string, len(citations))
	for i, c := range citations {
		parts[i] = fmt.Sprintf("%s (%s %d)", c.Document, PageLabel, c.Page)
	}
	return strings.Join(parts, " | ")
}
