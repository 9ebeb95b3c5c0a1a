package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string // ISO 639-1 (2-letter)
	code3   string // ISO 639-2 primary (3-letter)
	alt3    string // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string
}

// Common subtitle languages get a fixed table so display names and 2/3-letter
// mappings stay stable regardless of CLDR data. Anything else falls through
// to golang.org/x/text.
var languages = []entry{
	{"en", "eng", "", "English"},
	{"es", "spa", "", "Spanish"},
	{"fr", "fra", "fre", "French"},
	{"de", "deu", "ger", "German"},
	{"it", "ita", "", "Italian"},
	{"pt", "por", "", "Portuguese"},
	{"ja", "jpn", "", "Japanese"},
	{"ko", "kor", "", "Korean"},
	{"zh", "zho", "chi", "Chinese"},
	{"ru", "rus", "", "Russian"},
	{"ar", "ara", "", "Arabic"},
	{"hi", "hin", "", "Hindi"},
	{"nl", "nld", "dut", "Dutch"},
	{"pl", "pol", "", "Polish"},
	{"sv", "swe", "", "Swedish"},
	{"da", "dan", "", "Danish"},
	{"no", "nor", "", "Norwegian"},
	{"fi", "fin", "", "Finnish"},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	return nil
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter), the
// form ffmpeg stream language metadata uses. Returns "und" for unrecognized
// input, passing 3-letter codes through.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized code.
// Codes outside the fixed table are resolved through x/text's CLDR data;
// anything still unknown comes back as the uppercased code.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "und") {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if tag, err := xlang.Parse(code); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

// ExtractFromTags extracts and normalizes the language from stream metadata
// tags. Checks common tag keys: language, LANGUAGE, Language, language_ietf,
// lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
