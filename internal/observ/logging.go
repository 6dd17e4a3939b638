package observ

import (
	"encoding/json"
	"fmt"
	"time"
)

func Log(event string, kv map[string]any) {
	logAt("info", event, kv)
}

func LogDebug(event string, kv map[string]any) {
	logAt("debug", event, kv)
}

func LogError(event string, kv map[string]any) {
	logAt("error", event, kv)
}

func logAt(level, event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["level"] = level
	kv["event"] = event
	b, _ := json.Marshal(kv)
	fmt.Println(string(b))
}
