package concept

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultAcronyms are words kept in their canonical casing when a slug is
// turned into a display name.
var DefaultAcronyms = []string{
	// Molecular biology
	"DNA", "RNA", "mRNA", "tRNA", "rRNA", "cDNA", "siRNA", "miRNA",
	"CRISPR", "PCR", "ATP", "ADP", "NADH", "NADPH", "GLP", "GPCR",

	// Medicine and imaging
	"MRI", "fMRI", "NMR", "EEG", "ECG", "PET", "HIV", "AIDS", "COVID", "SARS",

	// Physics and chemistry
	"QED", "QCD", "DFT", "BCS", "CMB", "LIGO", "LED", "UV", "pH",

	// Computing
	"AI", "GPU", "CPU", "GPS", "API", "SQL", "XML", "HTML", "TCP",
}

// DefaultMinorWords stay lower-case inside a display name unless they
// start or end it.
var DefaultMinorWords = []string{
	"a", "an", "the", "and", "or", "nor", "of", "in", "on", "at",
	"to", "for", "by", "with", "from", "vs", "via",
}

// Naming holds the rules used to derive a display name from a slug.
type Naming struct {
	acronyms map[string]string
	minor    map[string]bool
}

// namingFile is the on-disk YAML shape of the naming rules.
type namingFile struct {
	Acronyms   []string `yaml:"acronyms"`
	MinorWords []string `yaml:"minor_words"`
}

// NewNaming creates naming rules from explicit word lists.
func NewNaming(acronyms, minorWords []string) *Naming {
	n := &Naming{
		acronyms: make(map[string]string, len(acronyms)),
		minor:    make(map[string]bool, len(minorWords)),
	}
	for _, a := range acronyms {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		n.acronyms[Fold(a)] = a
	}
	for _, w := range minorWords {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		n.minor[Fold(w)] = true
	}
	return n
}

// DefaultNaming returns the built-in naming rules.
func DefaultNaming() *Naming {
	return NewNaming(DefaultAcronyms, DefaultMinorWords)
}

// LoadNaming reads naming rules from a YAML file. An empty path returns
// the defaults. A list omitted from the file falls back to its default.
func LoadNaming(path string) (*Naming, error) {
	if path == "" {
		return DefaultNaming(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read naming file: %w", err)
	}

	var f namingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse naming file %s: %w", path, err)
	}

	acronyms := f.Acronyms
	if len(acronyms) == 0 {
		acronyms = DefaultAcronyms
	}
	minor := f.MinorWords
	if len(minor) == 0 {
		minor = DefaultMinorWords
	}

	return NewNaming(acronyms, minor), nil
}

// Deslugify turns a slug into a human-readable name.
//
// Percent-escapes are decoded, underscores become spaces, and each word
// is title-cased. Acronyms keep their configured casing and minor words
// stay lower-case unless they open or close the name. Hyphenated parts are cased
// independently ("x-ray" -> "X-Ray").
func (n *Naming) Deslugify(slug string) string {
	decoded, err := url.PathUnescape(slug)
	if err != nil {
		decoded = slug
	}

	words := strings.Fields(strings.ReplaceAll(decoded, "_", " "))
	title := cases.Title(language.English)

	for i, w := range words {
		if i > 0 && i < len(words)-1 && n.minor[Fold(w)] {
			words[i] = strings.ToLower(w)
			continue
		}

		parts := strings.Split(w, "-")
		for j, p := range parts {
			core := strings.TrimFunc(p, func(r rune) bool { return !isAlnum(r) })
			if core == "" {
				continue
			}
			cased, ok := n.acronyms[Fold(core)]
			if !ok {
				cased = title.String(core)
			}
			parts[j] = strings.Replace(p, core, cased, 1)
		}
		words[i] = strings.Join(parts, "-")
	}

	return strings.Join(words, " ")
}
