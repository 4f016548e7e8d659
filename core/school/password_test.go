package school

import "testing"

func TestGenerateTempPassword(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		pwd, err := GenerateTempPassword()
		if err != nil {
			t.Fatalf("GenerateTempPassword() failed: %v", err)
		}
		if len(pwd) != tempPasswordLen {
			t.Errorf("GenerateTempPassword() len = %d, want %d", len(pwd), tempPasswordLen)
		}
		if _, dup := seen[pwd]; dup {
			t.Errorf("GenerateTempPassword() repeated %q", pwd)
		}
		seen[pwd] = struct{}{}
	}
}
