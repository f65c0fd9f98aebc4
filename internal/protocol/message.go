package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 房间操作
	MsgJoinRoom MessageType = "joinRoom" // 加入房间（不存在则创建）
	MsgSettings MessageType = "settings" // 房主修改设置，服务端转发时同名

	// 游戏操作
	MsgStartGame       MessageType = "startGame"       // 房主开始游戏，服务端广播时同名
	MsgUpdateBookTitle MessageType = "updateBookTitle" // 更新书名
	MsgSubmitPage      MessageType = "submitPage"      // 提交本页内容
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgPong MessageType = "pong" // 心跳 pong

	// 房间相关
	MsgJoined    MessageType = "joined"    // 加入成功（房间快照）
	MsgUserJoin  MessageType = "userJoin"  // 其他玩家加入
	MsgUserLeave MessageType = "userLeave" // 玩家离开
	MsgUserHost  MessageType = "userHost"  // 房主变更
	MsgReject    MessageType = "reject"    // 请求被拒绝

	// 游戏流程
	MsgBookTitle       MessageType = "bookTitle"       // 书名更新
	MsgPage            MessageType = "page"            // 有人提交了一页
	MsgNextPage        MessageType = "nextPage"        // 所有人已提交，进入下一页
	MsgStartPresenting MessageType = "startPresenting" // 所有页完成，进入展示阶段

	// 错误
	MsgError MessageType = "error" // 错误消息
)
