package grading

// dictionary maps each built-in English word to accepted Spanish
// translations, most common first.
var dictionary = map[string][]string{
	"house":       {"casa", "hogar", "vivienda"},
	"car":         {"coche", "carro", "auto", "automóvil"},
	"book":        {"libro"},
	"water":       {"agua"},
	"food":        {"comida", "alimento"},
	"family":      {"familia"},
	"friend":      {"amigo", "amiga"},
	"work":        {"trabajo", "trabajar"},
	"school":      {"escuela", "colegio"},
	"time":        {"tiempo", "hora", "vez"},
	"day":         {"día"},
	"night":       {"noche"},
	"morning":     {"mañana"},
	"afternoon":   {"tarde"},
	"evening":     {"tarde", "noche", "atardecer"},
	"week":        {"semana"},
	"month":       {"mes"},
	"year":        {"año"},
	"today":       {"hoy"},
	"tomorrow":    {"mañana"},
	"yesterday":   {"ayer"},
	"love":        {"amor", "amar", "querer"},
	"happy":       {"feliz", "contento", "contenta", "alegre"},
	"sad":         {"triste"},
	"angry":       {"enojado", "enojada", "enfadado", "enfadada"},
	"beautiful":   {"hermoso", "hermosa", "bonito", "bonita", "bello", "bella", "lindo", "linda"},
	"good":        {"bueno", "buena", "bien"},
	"bad":         {"malo", "mala", "mal"},
	"big":         {"grande"},
	"small":       {"pequeño", "pequeña", "chico", "chica"},
	"hot":         {"caliente", "caluroso", "calor"},
	"cold":        {"frío", "fría", "frio", "fria"},
	"new":         {"nuevo", "nueva"},
	"old":         {"viejo", "vieja", "antiguo", "antigua"},
	"fast":        {"rápido", "rápida", "rapido", "rapida"},
	"slow":        {"lento", "lenta"},
	"easy":        {"fácil", "facil"},
	"difficult":   {"difícil", "dificil"},
	"important":   {"importante"},
	"interesting": {"interesante"},
}

// articles are stripped from the front of a learner's answer before the
// dictionary lookup.
var articles = []string{"el", "la", "un", "una", "los", "las"}

// Translations returns the accepted Spanish translations of word, or nil when
// the word is not in the built-in dictionary.
func Translations(word string) []string {
	return dictionary[normalize(word)]
}
