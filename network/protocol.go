package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeJoinRoom  = 101
	MsgTypeLeaveRoom = 102
	MsgTypeEvent     = 301
	MsgTypeError     = 401
)
