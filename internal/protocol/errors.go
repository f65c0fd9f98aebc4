package protocol

// 错误码
const (
	ErrCodeUnknown    = 1000
	ErrCodeInvalidMsg = 1001
	ErrCodeRateLimit  = 1002 // 速率限制

	ErrCodeRoomFull    = 2002
	ErrCodeNotInRoom   = 2003
	ErrCodeGameStarted = 2004 // 游戏已开始

	ErrCodeAlreadyInRoom   = 4001
	ErrCodeNotHost         = 4002
	ErrCodeWrongPhase      = 4003
	ErrCodeTooFewPlayers   = 4004
	ErrCodeInvalidSettings = 4005
	ErrCodeInvalidIdentity = 4006
	ErrCodeInvalidPage     = 4007

	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "未知错误",
	ErrCodeInvalidMsg:        "无效的消息格式",
	ErrCodeRateLimit:         "请求过于频繁",
	ErrCodeRoomFull:          "房间已满",
	ErrCodeNotInRoom:         "您不在房间中",
	ErrCodeGameStarted:       "游戏已开始",
	ErrCodeAlreadyInRoom:     "您已在房间中",
	ErrCodeNotHost:           "只有房主可以执行此操作",
	ErrCodeWrongPhase:        "当前阶段不允许此操作",
	ErrCodeTooFewPlayers:     "至少需要两名玩家",
	ErrCodeInvalidSettings:   "无效的房间设置",
	ErrCodeInvalidIdentity:   "无效的身份信息",
	ErrCodeInvalidPage:       "无效的页面内容",
	ErrCodeServerMaintenance: "服务器维护中",
}
