// Package imagecheck 解码客户端提交的 base64 图片并检查像素尺寸
package imagecheck

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"strings"
)

// 画布目标尺寸及容差
const (
	TargetWidth     = 800
	TargetHeight    = 600
	WidthTolerance  = 8
	HeightTolerance = 6
)

// MaxEncodedSize base64 文本的最大长度（约 3 MiB 解码后）
const MaxEncodedSize = 4 << 20

var (
	ErrTooLarge = errors.New("imagecheck: encoded image too large")
	ErrEncoding = errors.New("imagecheck: invalid base64")
)

// Dimensions 解码 base64 图片（可带 data:image/...;base64, 前缀）并返回宽高。
// 只读取图片头，不解码像素
func Dimensions(encoded string) (width, height int, err error) {
	if len(encoded) > MaxEncodedSize {
		return 0, 0, ErrTooLarge
	}
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 || !strings.HasSuffix(encoded[:comma], ";base64") {
			return 0, 0, ErrEncoding
		}
		encoded = encoded[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("imagecheck: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Within 尺寸是否在目标容差内
func Within(width, height int) bool {
	return abs(width-TargetWidth) <= WidthTolerance && abs(height-TargetHeight) <= HeightTolerance
}

// Accept 图片可解码且尺寸在容差内
func Accept(encoded string) bool {
	w, h, err := Dimensions(encoded)
	if err != nil {
		return false
	}
	return Within(w, h)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
