//go:build unix

package credstore

import (
	"fmt"
	"os"
	"strings"
)

// machineID возвращает стабильный идентификатор машины из /etc/machine-id.
// Если файл недоступен, откатывается к имени хоста.
func machineID() (string, error) {
	data, err := os.ReadFile("/etc/machine-id")
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}

	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("не удалось определить идентификатор устройства: %w", err)
	}
	return host, nil
}
