package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Duration 支持 YAML/JSON 反序列化，单位为秒
// 可以从数字（秒数）或字符串（如 "30s"）解析
type Duration int64

// Duration 返回 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d) * time.Second
}

// Seconds 返回秒数
func (d Duration) Seconds() int64 {
	return int64(d)
}

// SecondsInt 返回 int 类型的秒数
func (d Duration) SecondsInt() int {
	return int(d)
}

var durationType = reflect.TypeOf(Duration(0))

// StringToDurationHookFunc is a mapstructure decode hook that lets a
// Duration field be written in YAML either as a bare seconds count or as a
// Go duration string ("30s", "5m"), the string form the type's doc comment
// has always promised. LoadConfig installs this so every Duration field
// across CommandRouterConfig and JWTConfig gets it for free.
func StringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType || from.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Duration(secs), nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		return Duration(parsed / time.Second), nil
	}
}
