package lua

// 세션 스크립트 이름 상수.
const (
	ScriptSessionCreate   = "session_create"
	ScriptSessionCASWrite = "session_cas_write"
	ScriptSessionDelete   = "session_delete"
)

// 매칭 큐 스크립트 이름 상수.
const (
	ScriptQueueMatch = "queue_match"
	ScriptQueueLeave = "queue_leave"
)
