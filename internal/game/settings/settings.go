package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
)

// ErrInvalid 设置对象未通过校验
var ErrInvalid = errors.New("invalid settings")

// PageType 页面类型（写或画）
type PageType string

const (
	PageWrite PageType = "Write"
	PageDraw  PageType = "Draw"
)

// Opposite 返回另一种页面类型
func (t PageType) Opposite() PageType {
	if t == PageDraw {
		return PageWrite
	}
	return PageDraw
}

// PageOrder 书本分配顺序
type PageOrder string

const (
	OrderNormal PageOrder = "Normal"
	OrderRandom PageOrder = "Random"
)

// NoPalette 唯一可选的调色板
const NoPalette = "No palette"

// Settings 房间设置
type Settings struct {
	FirstPage PageType  `json:"firstPage"`
	PageCount int       `json:"pageCount"`
	PageOrder PageOrder `json:"pageOrder"`
	Palette   string    `json:"palette"`
	TimeWrite int       `json:"timeWrite"`
	TimeDraw  int       `json:"timeDraw"`
}

// Default 返回新房间的默认设置
func Default() Settings {
	return Settings{
		FirstPage: PageWrite,
		PageCount: 8,
		PageOrder: OrderNormal,
		Palette:   NoPalette,
		TimeWrite: 0,
		TimeDraw:  0,
	}
}

// PageTypeAt 返回第 page 页应提交的类型：偶数页为首页类型，奇数页为另一种
func (s Settings) PageTypeAt(page int) PageType {
	if page%2 == 0 {
		return s.FirstPage
	}
	return s.FirstPage.Opposite()
}

// Raw 将设置转换为客户端提交的原始格式
func (s Settings) Raw() Raw {
	raw := make(Raw, 6)
	raw["firstPage"], _ = json.Marshal(s.FirstPage)
	raw["pageCount"], _ = json.Marshal(s.PageCount)
	raw["pageOrder"], _ = json.Marshal(s.PageOrder)
	raw["palette"], _ = json.Marshal(s.Palette)
	raw["timeWrite"], _ = json.Marshal(s.TimeWrite)
	raw["timeDraw"], _ = json.Marshal(s.TimeDraw)
	return raw
}

// Raw 客户端提交的设置对象，未经校验
type Raw map[string]json.RawMessage

// Kind 设置项类型
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// Constraint 单个设置项的约束
type Constraint struct {
	Kind    Kind
	Allowed []string // KindString 可选值
	Min     int      // KindNumber 下限（含）
	Max     int      // KindNumber 上限（含）
}

// Constraints 设置项名到约束的映射
type Constraints map[string]Constraint

// DefaultConstraints 房间设置的固定约束
var DefaultConstraints = Constraints{
	"firstPage": {Kind: KindString, Allowed: []string{string(PageWrite), string(PageDraw)}},
	"pageCount": {Kind: KindNumber, Min: 2, Max: 20},
	"pageOrder": {Kind: KindString, Allowed: []string{string(OrderNormal), string(OrderRandom)}},
	"palette":   {Kind: KindString, Allowed: []string{NoPalette}},
	"timeWrite": {Kind: KindNumber, Min: 0, Max: 15},
	"timeDraw":  {Kind: KindNumber, Min: 0, Max: 15},
}

// Validate 校验设置对象。约束表中的每一项都必须存在且满足约束，
// 不在约束表中的键被忽略。
func Validate(raw Raw, constraints Constraints) bool {
	for key, c := range constraints {
		value, ok := raw[key]
		if !ok {
			return false
		}
		switch c.Kind {
		case KindString:
			s, ok := stringValue(value)
			if !ok || !slices.Contains(c.Allowed, s) {
				return false
			}
		case KindNumber:
			n, ok := numberValue(value)
			if !ok || n < c.Min || n > c.Max {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Parse 校验并转换为 Settings
func Parse(raw Raw) (Settings, error) {
	if !Validate(raw, DefaultConstraints) {
		return Settings{}, ErrInvalid
	}

	first, _ := stringValue(raw["firstPage"])
	order, _ := stringValue(raw["pageOrder"])
	palette, _ := stringValue(raw["palette"])
	pageCount, _ := numberValue(raw["pageCount"])
	timeWrite, _ := numberValue(raw["timeWrite"])
	timeDraw, _ := numberValue(raw["timeDraw"])

	return Settings{
		FirstPage: PageType(first),
		PageCount: pageCount,
		PageOrder: PageOrder(order),
		Palette:   palette,
		TimeWrite: timeWrite,
		TimeDraw:  timeDraw,
	}, nil
}

func stringValue(value json.RawMessage) (string, bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || value[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", false
	}
	return s, true
}

// numberValue 接受 JSON 数字或字符串，字面量只能由十进制数字组成
func numberValue(value json.RawMessage) (int, bool) {
	literal := string(bytes.TrimSpace(value))
	if s, ok := stringValue(value); ok {
		literal = s
	}
	if literal == "" || len(literal) > 9 {
		return 0, false
	}
	for i := 0; i < len(literal); i++ {
		if literal[i] < '0' || literal[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(literal)
	if err != nil {
		return 0, false
	}
	return n, true
}
