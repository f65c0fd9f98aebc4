package server

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/server/session"
)

// qrSize 二维码边长（像素），适合手机扫描
const qrSize = 320

// Router 注册 HTTP 路由
func (s *Server) Router() http.Handler {
	mux := httprouter.New()

	mux.GET("/ws", s.handleWebSocket)
	mux.GET("/healthz", s.handleHealth)
	mux.GET("/version", s.handleVersion)
	mux.GET("/api/rooms", s.handleRoomList)
	mux.GET("/rooms/:room/qr", s.handleRoomQR)

	return mux
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.version + "\n"))
}

// handleRoomList 返回可加入的房间
func (s *Server) handleRoomList(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	rooms := s.roomManager.GetRoomList()
	if rooms == nil {
		rooms = []protocol.RoomListItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rooms); err != nil {
		log.Printf("房间列表编码失败: %v", err)
	}
}

// handleRoomQR 生成房间加入链接的 PNG 二维码
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("room")
	if !session.ValidRoomID(roomID) {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	png, err := qrcode.Encode(s.joinURL(r, roomID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// joinURL 房间的加入链接。优先使用配置的对外地址，否则根据请求推断
func (s *Server) joinURL(r *http.Request, roomID string) string {
	base := strings.TrimSuffix(s.config.Server.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	return base + "/?" + url.Values{"room": {roomID}}.Encode()
}
