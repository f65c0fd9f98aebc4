// Package book 计算每本书每一页由谁来写或画
package book

import (
	"errors"
	"math/rand/v2"

	"github.com/palemoky/exquisite-corpse/internal/game/settings"
)

var (
	ErrTooFewPlayers    = errors.New("book: at least two players are required")
	ErrInvalidPageCount = errors.New("book: page count must be positive")
	ErrDuplicatePlayer  = errors.New("book: duplicate player id")
)

// Books 书的 ID（封面作者的公开 ID）到路线的映射。
// 路线长度为页数，第 i 项是第 i 页的作者，第 0 项是书的主人
type Books map[string][]string

// Assign 为给定的玩家顺序生成整局游戏的分配方案。
// rounds[i][j] 是 players[j] 那本书第 i 页的作者
func Assign(players []string, pageCount int, order settings.PageOrder, rng *rand.Rand) (Books, error) {
	n := len(players)
	if n < 2 {
		return nil, ErrTooFewPlayers
	}
	if pageCount < 1 {
		return nil, ErrInvalidPageCount
	}
	seen := make(map[string]struct{}, n)
	for _, p := range players {
		if _, dup := seen[p]; dup {
			return nil, ErrDuplicatePlayer
		}
		seen[p] = struct{}{}
	}

	var rounds [][]string
	if order == settings.OrderRandom {
		rounds = randomRounds(players, pageCount, rng)
	} else {
		rounds = normalRounds(players, pageCount)
	}

	books := make(Books, n)
	for j, owner := range players {
		route := make([]string, pageCount)
		for i := range pageCount {
			route[i] = rounds[i][j]
		}
		books[owner] = route
	}
	return books, nil
}

// normalRounds 第 i 页由主人后面第 i 位玩家负责（循环）
func normalRounds(players []string, pageCount int) [][]string {
	n := len(players)
	rounds := make([][]string, pageCount)
	for i := range pageCount {
		round := make([]string, n)
		for j := range n {
			round[j] = players[(j+i)%n]
		}
		rounds[i] = round
	}
	return rounds
}

// randomRounds 第 0 轮为原顺序，之后每轮独立洗牌，
// 再把与上一轮同位置相同的元素和另一个随机位置交换
func randomRounds(players []string, pageCount int, rng *rand.Rand) [][]string {
	shuffle := rand.Shuffle
	intN := rand.IntN
	if rng != nil {
		shuffle = rng.Shuffle
		intN = rng.IntN
	}

	n := len(players)
	rounds := make([][]string, pageCount)
	rounds[0] = append([]string(nil), players...)
	for i := 1; i < pageCount; i++ {
		prev := rounds[i-1]
		round := append([]string(nil), players...)
		shuffle(n, func(a, b int) { round[a], round[b] = round[b], round[a] })

		for j := range n {
			if round[j] != prev[j] {
				continue
			}
			// 每轮都是无重复的排列，交换后 j、k 两处都不会与上一轮相同
			k := intN(n - 1)
			if k >= j {
				k++
			}
			round[j], round[k] = round[k], round[j]
		}
		rounds[i] = round
	}
	return rounds
}

// Contributor 返回 bookID 这本书第 page 页的作者
func (b Books) Contributor(bookID string, page int) (string, bool) {
	route, ok := b[bookID]
	if !ok || page < 0 || page >= len(route) {
		return "", false
	}
	return route[page], true
}

// BookFor 返回 author 在第 page 页负责的书
func (b Books) BookFor(author string, page int) (string, bool) {
	for id, route := range b {
		if page >= 0 && page < len(route) && route[page] == author {
			return id, true
		}
	}
	return "", false
}
