package mobile

import (
	"encoding/json"
	"testing"
)

func TestNotRunning(t *testing.T) {
	if IsRunning() {
		t.Fatal("IsRunning before Start")
	}
	if got := GetStatus(); got != `{"running":false}` {
		t.Errorf("GetStatus = %s", got)
	}
	if got := GetAPIPort(); got != 0 {
		t.Errorf("GetAPIPort = %d, want 0", got)
	}
	for name, out := range map[string]string{
		"GetPool":   GetPool(),
		"GetWallet": GetWallet("0x564DF71B75855d63c86a267206Cd0c9e35c92789"),
	} {
		var resp map[string]string
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("%s: invalid JSON %q: %v", name, out, err)
		}
		if resp["error"] != "daemon not running" {
			t.Errorf("%s error = %q", name, resp["error"])
		}
	}
}

func TestStartRejectsBadConfig(t *testing.T) {
	err := Start("contracts:\n  token: nope\n", t.TempDir())
	if err == nil {
		Stop()
		t.Fatal("Start accepted an invalid token address")
	}
	if IsRunning() {
		t.Error("running after failed Start")
	}
}
