// Package sanitize 清洗来自客户端的不可信文本
package sanitize

import (
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/secure/precis"
)

// ErrEmpty 清洗后为空
var ErrEmpty = errors.New("sanitize: empty after cleaning")

var strict = bluemonday.StrictPolicy()

// maxUnescapeRounds 多层实体编码的最大展开次数，超过时视为恶意输入
const maxUnescapeRounds = 8

// Clean 去除所有标签与可执行标记，返回未转义的纯文本并去掉首尾空白。
// 实体解码后可能重新组成标签，因此反复清洗直到结果不再变化
func Clean(text string) string {
	out := text
	for range maxUnescapeRounds {
		next := html.UnescapeString(strict.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return ""
}

// Truncate 按字符（rune）截断到最多 max 个
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

// Text 清洗并截断
func Text(text string, max int) string {
	return Truncate(Clean(text), max)
}

// Nickname 清洗昵称并按 PRECIS Nickname 配置规范化（折叠空白、NFKC）
func Nickname(name string) (string, error) {
	cleaned := Clean(name)
	if cleaned == "" {
		return "", ErrEmpty
	}
	normalized, err := precis.Nickname.String(cleaned)
	if err != nil {
		return "", err
	}
	if normalized == "" {
		return "", ErrEmpty
	}
	return normalized, nil
}
