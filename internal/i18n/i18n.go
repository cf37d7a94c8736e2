// Package i18n renders user-visible text from embedded locale catalogs.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is used when a user's preference matches nothing.
const BaseLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

// Translator renders a message key with named params for a locale.
type Translator interface {
	T(locale, key string, params map[string]string) string
}

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds messages for every loaded locale.
type Catalog struct {
	builder *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
}

// Load reads the embedded locale files.
func Load() (*Catalog, error) {
	return LoadFromFS(embeddedLocales, BaseLocale)
}

// LoadFromFS reads locales/*.yaml from fsys. fallback must be one of the
// loaded locales.
func LoadFromFS(fsys fs.FS, fallback string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	fallbackTag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse fallback locale %q: %w", fallback, err)
	}

	builder := catalog.NewBuilder(catalog.Fallback(fallbackTag))
	tags := []language.Tag{fallbackTag}
	seenFallback := false

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", path, err)
		}
		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q in %s: %w", file.Locale, path, err)
		}
		for key, msg := range file.Messages {
			// Printer formats catalog text, so a literal percent sign must
			// reach it doubled.
			if err := builder.SetString(tag, key, strings.ReplaceAll(msg, "%", "%%")); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", file.Locale, key, err)
			}
		}
		if tag == fallbackTag {
			seenFallback = true
			continue
		}
		tags = append(tags, tag)
	}
	if !seenFallback {
		return nil, fmt.Errorf("fallback locale %q has no catalog", fallback)
	}

	return &Catalog{
		builder: builder,
		tags:    tags,
		matcher: language.NewMatcher(tags),
	}, nil
}

// Match resolves a user preference such as "ru-RU" to a loaded locale.
func (c *Catalog) Match(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return c.tags[0]
	}
	desired, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(desired) == 0 {
		return c.tags[0]
	}
	_, index, _ := c.matcher.Match(desired...)
	return c.tags[index]
}

// Locales lists the loaded locales, fallback first.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.tags))
	for _, tag := range c.tags {
		out = append(out, tag.String())
	}
	return out
}

// T renders key for locale. Unknown keys render as the key itself.
func (c *Catalog) T(locale, key string, params map[string]string) string {
	tag := c.Match(locale)
	tmpl := c.lookup(tag, key)
	if tmpl == key && tag != c.tags[0] {
		tmpl = c.lookup(c.tags[0], key)
	}
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	if params == nil {
		params = map[string]string{}
	}
	t, err := template.New("msg").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return tmpl
	}
	return buf.String()
}

// lookup returns the raw message for key, or key when tag has no entry.
func (c *Catalog) lookup(tag language.Tag, key string) string {
	return message.NewPrinter(tag, message.Catalog(c.builder)).Sprintf(key)
}
