package i18n

import (
	"embed"
	"log"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed locales/*.json
var localeFS embed.FS

var (
	translations = make(map[string]map[string]string)
	once         sync.Once
)

// Init loads the embedded translations. It is safe to call more than once.
func Init() {
	once.Do(func() {
		files, err := localeFS.ReadDir("locales")
		if err != nil {
			log.Printf("i18n: %v", err)
			return
		}
		for _, f := range files {
			if path.Ext(f.Name()) != ".json" {
				continue
			}
			lang := strings.TrimSuffix(f.Name(), ".json")
			data, err := localeFS.ReadFile(path.Join("locales", f.Name()))
			if err != nil {
				log.Printf("i18n: reading %s: %v", f.Name(), err)
				continue
			}
			var t map[string]string
			if err := json.Unmarshal(data, &t); err != nil {
				log.Printf("i18n: parsing %s: %v", f.Name(), err)
				continue
			}
			translations[lang] = t
		}
	})
}

func T(lang, key string) string {
	Init()
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	// Fallback to en
	if t, ok := translations["en"]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	return key
}

// GetLang prefers the "lang" query parameter over the "lang" cookie.
func GetLang(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return l
	}
	cookie, err := r.Cookie("lang")
	if err == nil {
		return cookie.Value
	}
	return "en"
}

func GetAvailableLangs() []string {
	Init()
	langs := []string{}
	for l := range translations {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}
