//go:build !unix

package credstore

import (
	"fmt"
	"os"
)

// machineID на прочих платформах привязывается к имени хоста.
func machineID() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("не удалось определить идентификатор устройства: %w", err)
	}
	return host, nil
}
