package valkeyx

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

// SetStringEX: 문자열 값을 TTL과 함께 저장합니다.
func SetStringEX(ctx context.Context, client valkey.Client, key, value string, ttl time.Duration) error {
	cmd := client.B().Set().Key(key).Value(value).ExSeconds(int64(ttl.Seconds())).Build()
	return client.Do(ctx, cmd).Error()
}

// SetNXStringEX: 키가 없을 때만 값을 저장합니다. 저장 성공 여부를 반환합니다.
func SetNXStringEX(ctx context.Context, client valkey.Client, key, value string, ttl time.Duration) (bool, error) {
	cmd := client.B().Set().Key(key).Value(value).Nx().ExSeconds(int64(ttl.Seconds())).Build()
	err := client.Do(ctx, cmd).Error()
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetBytes: 키의 값을 바이트로 조회합니다. 키가 없으면 (nil, false, nil)을 반환합니다.
func GetBytes(ctx context.Context, client valkey.Client, key string) ([]byte, bool, error) {
	cmd := client.B().Get().Key(key).Build()
	raw, err := client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if IsNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

// GetString: 키의 값을 문자열로 조회합니다. 키가 없으면 ("", false, nil)을 반환합니다.
func GetString(ctx context.Context, client valkey.Client, key string) (string, bool, error) {
	raw, ok, err := GetBytes(ctx, client, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(raw), true, nil
}

// DeleteKeys: 주어진 키들을 삭제합니다.
func DeleteKeys(ctx context.Context, client valkey.Client, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	cmd := client.B().Del().Key(keys...).Build()
	return client.Do(ctx, cmd).Error()
}
