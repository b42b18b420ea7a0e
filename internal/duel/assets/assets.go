package assets

import _ "embed" // 에셋 임베드용

// WordCatalogYAML 는 비밀 단어 카탈로그 YAML이다.
//
//go:embed words/word-catalog.yml
var WordCatalogYAML string

// SessionCreateLua 는 세션 생성 Lua 스크립트다.
//
//go:embed lua/session_create.lua
var SessionCreateLua string

// SessionCASWriteLua 는 조건부 세션 쓰기 Lua 스크립트다.
//
//go:embed lua/session_cas_write.lua
var SessionCASWriteLua string

// SessionDeleteLua 는 세션 삭제 Lua 스크립트다.
//
//go:embed lua/session_delete.lua
var SessionDeleteLua string

// QueueMatchLua 는 매칭 큐 원자 처리 Lua 스크립트다.
//
//go:embed lua/queue_match.lua
var QueueMatchLua string

// QueueLeaveLua 는 매칭 큐 이탈 Lua 스크립트다.
//
//go:embed lua/queue_leave.lua
var QueueLeaveLua string
