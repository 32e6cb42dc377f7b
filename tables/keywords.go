// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tables

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/fundlens/core"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// ClassKeywords are the keyword sets scored during classification.
type ClassKeywords struct {
	CapitalCall  []string `yaml:"capital_call"`
	Distribution []string `yaml:"distribution"`
	Adjustment   []string `yaml:"adjustment"`
}

// Weights multiply each class's keyword hits.
type Weights struct {
	CapitalCall  int `yaml:"capital_call"`
	Distribution int `yaml:"distribution"`
	Adjustment   int `yaml:"adjustment"`
}

// FieldKeywords locate field columns by header name.
type FieldKeywords struct {
	Date        []string `yaml:"date"`
	Amount      []string `yaml:"amount"`
	Description []string `yaml:"description"`
	Type        []string `yaml:"type"`
	Category    []string `yaml:"category"`
	Recallable  []string `yaml:"recallable"`
	// RecallableText is searched in every cell when no recallable column exists.
	RecallableText []string `yaml:"recallable_text"`
	// Contribution marks an adjustment as contribution-related when found in its description.
	Contribution []string `yaml:"contribution"`
}

// Keywords is the complete, swappable keyword configuration.
type Keywords struct {
	Classification ClassKeywords `yaml:"classification"`
	Weights        Weights       `yaml:"weights"`
	Fields         FieldKeywords `yaml:"fields"`
	Truthy         []string      `yaml:"truthy"`
}

// DefaultKeywords returns the built-in keyword tables.
func DefaultKeywords() *Keywords {
	var k Keywords
	if err := yaml.Unmarshal(defaultKeywordsYAML, &k); err != nil {
		panic(fmt.Sprintf("tables: embedded keywords are invalid: %v", err))
	}
	k.normalize()
	return &k
}

// LoadKeywords reads keyword tables from YAML. Sections left empty keep
// their default values.
func LoadKeywords(r io.Reader) (*Keywords, error) {
	var k Keywords
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&k); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeywords, err)
	}

	k.fillFrom(DefaultKeywords())
	if err := k.Validate(); err != nil {
		return nil, err
	}
	k.normalize()
	return &k, nil
}

// LoadKeywordsFile reads keyword tables from a YAML file.
func LoadKeywordsFile(path string) (*Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadKeywords(bytes.NewReader(data))
}

// Validate rejects negative weights.
func (k *Keywords) Validate() error {
	if k.Weights.CapitalCall < 0 || k.Weights.Distribution < 0 || k.Weights.Adjustment < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidKeywords)
	}
	return nil
}

// classKeywords returns the keyword set and weight for a table type.
func (k *Keywords) classKeywords(typ core.TableType) ([]string, int) {
	switch typ {
	case core.TableCapitalCall:
		return k.Classification.CapitalCall, k.Weights.CapitalCall
	case core.TableDistribution:
		return k.Classification.Distribution, k.Weights.Distribution
	case core.TableAdjustment:
		return k.Classification.Adjustment, k.Weights.Adjustment
	default:
		return nil, 0
	}
}

func (k *Keywords) fillFrom(d *Keywords) {
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	fill(&k.Classification.CapitalCall, d.Classification.CapitalCall)
	fill(&k.Classification.Distribution, d.Classification.Distribution)
	fill(&k.Classification.Adjustment, d.Classification.Adjustment)
	fill(&k.Fields.Date, d.Fields.Date)
	fill(&k.Fields.Amount, d.Fields.Amount)
	fill(&k.Fields.Description, d.Fields.Description)
	fill(&k.Fields.Type, d.Fields.Type)
	fill(&k.Fields.Category, d.Fields.Category)
	fill(&k.Fields.Recallable, d.Fields.Recallable)
	fill(&k.Fields.RecallableText, d.Fields.RecallableText)
	fill(&k.Fields.Contribution, d.Fields.Contribution)
	fill(&k.Truthy, d.Truthy)

	if k.Weights == (Weights{}) {
		k.Weights = d.Weights
	}
}

// normalize lower-cases every keyword so matching can fold only the input.
func (k *Keywords) normalize() {
	for _, list := range []*[]string{
		&k.Classification.CapitalCall, &k.Classification.Distribution, &k.Classification.Adjustment,
		&k.Fields.Date, &k.Fields.Amount, &k.Fields.Description, &k.Fields.Type,
		&k.Fields.Category, &k.Fields.Recallable, &k.Fields.RecallableText,
		&k.Fields.Contribution, &k.Truthy,
	} {
		out := make([]string, 0, len(*list))
		for _, kw := range *list {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				out = append(out, kw)
			}
		}
		*list = out
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
