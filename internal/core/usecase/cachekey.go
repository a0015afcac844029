package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// normalizeQuery folds case and collapses interior whitespace so cosmetic
// variants of the same question share one cache slot.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// responseCacheKey derives the cache key from the normalized question, the
// sorted ids of the grounding sections and the conversation depth. Identical
// questions over different retrieved contexts never collide, and the same
// question at a different point of the conversation is keyed apart.
func responseCacheKey(query string, sectionIDs []string, historyLen int) string {
	ids := append([]string(nil), sectionIDs...)
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(normalizeQuery(query)))
	h.Write([]byte{0})
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "t%d", historyLen)
	return hex.EncodeToString(h.Sum(nil))
}
