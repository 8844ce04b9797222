package vocabulary

import "strings"

// ipa holds pronunciation hints for the default list. Uploaded words
// without an entry simply have no hint.
var ipa = map[string]string{
	"house":       "/haʊs/",
	"car":         "/kɑːr/",
	"book":        "/bʊk/",
	"water":       "/ˈwɔːtər/",
	"food":        "/fuːd/",
	"family":      "/ˈfæməli/",
	"friend":      "/frɛnd/",
	"work":        "/wɜːrk/",
	"school":      "/skuːl/",
	"time":        "/taɪm/",
	"money":       "/ˈmʌni/",
	"phone":       "/foʊn/",
	"computer":    "/kəmˈpjuːtər/",
	"day":         "/deɪ/",
	"night":       "/naɪt/",
	"morning":     "/ˈmɔːrnɪŋ/",
	"afternoon":   "/ˌæftərˈnuːn/",
	"evening":     "/ˈiːvnɪŋ/",
	"week":        "/wiːk/",
	"month":       "/mʌnθ/",
	"year":        "/jɪr/",
	"today":       "/təˈdeɪ/",
	"tomorrow":    "/təˈmɔːroʊ/",
	"yesterday":   "/ˈjɛstərdeɪ/",
	"love":        "/lʌv/",
	"happy":       "/ˈhæpi/",
	"sad":         "/sæd/",
	"angry":       "/ˈæŋɡri/",
	"beautiful":   "/ˈbjuːtəfəl/",
	"good":        "/ɡʊd/",
	"bad":         "/bæd/",
	"big":         "/bɪɡ/",
	"small":       "/smɔːl/",
	"hot":         "/hɑːt/",
	"cold":        "/koʊld/",
	"new":         "/nuː/",
	"old":         "/oʊld/",
	"fast":        "/fæst/",
	"slow":        "/sloʊ/",
	"easy":        "/ˈiːzi/",
	"difficult":   "/ˈdɪfɪkəlt/",
	"important":   "/ɪmˈpɔːrtənt/",
	"interesting": "/ˈɪntrəstɪŋ/",
}

// Phonetic returns the IPA transcription of word, if known.
func Phonetic(word string) (string, bool) {
	s, ok := ipa[strings.ToLower(strings.TrimSpace(word))]
	return s, ok
}
