// Package catalog: 비밀 단어 카탈로그를 로드하고 무작위 선택을 제공한다.
package catalog

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/park285/word-duel-go/internal/duel/assets"
)

// Word: 비밀 단어와 소속 카테고리 쌍입니다.
type Word struct {
	Word     string
	Category string
}

// Catalog: 카테고리별 단어 목록. 로드 후 읽기 전용이므로 잠금이 필요 없다.
type Catalog struct {
	all        []Word
	byCategory map[string][]Word
	categories []string
}

type catalogFile struct {
	Categories []struct {
		Name  string   `yaml:"name"`
		Words []string `yaml:"words"`
	} `yaml:"categories"`
}

// Load: 임베드된 YAML 카탈로그를 파싱하여 Catalog를 생성합니다.
func Load() (*Catalog, error) {
	return parse(assets.WordCatalogYAML)
}

func parse(raw string) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal([]byte(raw), &file); err != nil {
		return nil, fmt.Errorf("parse word catalog: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("word catalog has no categories")
	}

	c := &Catalog{
		byCategory: make(map[string][]Word, len(file.Categories)),
	}
	for _, category := range file.Categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return nil, fmt.Errorf("word catalog has category with empty name")
		}
		for _, rawWord := range category.Words {
			word := strings.TrimSpace(rawWord)
			if word == "" {
				continue
			}
			entry := Word{Word: word, Category: name}
			c.all = append(c.all, entry)
			c.byCategory[name] = append(c.byCategory[name], entry)
		}
		if len(c.byCategory[name]) == 0 {
			return nil, fmt.Errorf("word catalog category %q has no words", name)
		}
		c.categories = append(c.categories, name)
	}
	return c, nil
}

// RandomWord: 전체 카탈로그에서 무작위 단어를 선택합니다.
func (c *Catalog) RandomWord() Word {
	return c.all[rand.IntN(len(c.all))]
}

// WordByCategory: 해당 카테고리에서 무작위 단어를 선택합니다.
// 존재하지 않는 카테고리면 전체 카탈로그로 폴백합니다.
func (c *Catalog) WordByCategory(category string) Word {
	words, ok := c.byCategory[category]
	if !ok {
		return c.RandomWord()
	}
	return words[rand.IntN(len(words))]
}

// Categories: 카탈로그에 정의된 카테고리 목록을 YAML 순서대로 반환합니다.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Size: 전체 단어 수를 반환합니다.
func (c *Catalog) Size() int {
	return len(c.all)
}
