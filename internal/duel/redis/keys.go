// Package redis 는 워드 듀얼의 Redis/Valkey 저장소(세션, 매칭 큐)를 정의한다.
package redis

import (
	"github.com/park285/word-duel-go/internal/common/valkeyx"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
)

// sessionKey 는 게임 세션 데이터 저장용 키를 생성한다.
// 형식: duel:session:{gameID}
func sessionKey(gameID string) string {
	return valkeyx.BuildKey(dconfig.RedisKeySessionPrefix, gameID)
}

// sessionVersionKey 는 세션 버전 카운터 키를 생성한다.
// 형식: duel:session:ver:{gameID}
func sessionVersionKey(gameID string) string {
	return valkeyx.BuildKey(dconfig.RedisKeyVersionPrefix, gameID)
}

// settledKey 는 보상 정산 완료 마커 키를 생성한다.
// 형식: duel:settled:{gameID}
func settledKey(gameID string) string {
	return valkeyx.BuildKey(dconfig.RedisKeySettledPrefix, gameID)
}
