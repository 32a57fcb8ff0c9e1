// Package credstore хранит учетные данные Telegram API в зашифрованном
// файле, привязанном к текущему устройству. Файл, перенесенный на другую
// машину, не расшифровывается и трактуется как отсутствующий.
package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

const (
	// Соль константна: ключ должен воспроизводиться на том же устройстве.
	// Роль пароля играет идентификатор устройства.
	keySalt       = "static_salt_tg_exporter"
	keyIterations = 100000
	keyLength     = 32
)

// Store реализует ports.CredentialStore поверх файла, зашифрованного
// AES-256-GCM с ключом, выведенным из идентификатора устройства.
type Store struct {
	path     string
	deviceID func() (string, error)
	log      *slog.Logger
}

var _ ports.CredentialStore = (*Store)(nil)

// Option — функциональная опция для настройки хранилища.
type Option func(*Store)

// WithLogger устанавливает логгер хранилища.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDeviceID подменяет источник идентификатора устройства.
func WithDeviceID(f func() (string, error)) Option {
	return func(s *Store) {
		if f != nil {
			s.deviceID = f
		}
	}
}

// New создает хранилище, привязанное к файлу path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		deviceID: machineID,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load читает и расшифровывает сохраненные учетные данные. Отсутствующий
// файл — не ошибка. Файл, который не удалось расшифровать (например,
// созданный на другом устройстве), трактуется так же: данные считаются
// отсутствующими, о чем пишется предупреждение.
func (s *Store) Load() (domain.Credentials, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return domain.Credentials{}, false, nil
	}
	if err != nil {
		return domain.Credentials{}, false, fmt.Errorf("не удалось прочитать файл учетных данных: %w", err)
	}

	plaintext, err := s.decrypt(data)
	if err != nil {
		s.log.Warn("Could not decrypt credentials file, treating as absent", "path", s.path, "error", err)
		return domain.Credentials{}, false, nil
	}

	var creds domain.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		s.log.Warn("Credentials file is corrupt, treating as absent", "path", s.path, "error", err)
		return domain.Credentials{}, false, nil
	}

	return creds, true, nil
}

// Save шифрует и сохраняет учетные данные.
func (s *Store) Save(creds domain.Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать учетные данные: %w", err)
	}

	encrypted, err := s.encrypt(payload)
	if err != nil {
		return fmt.Errorf("не удалось зашифровать учетные данные: %w", err)
	}

	if err := os.WriteFile(s.path, encrypted, 0o600); err != nil {
		return fmt.Errorf("не удалось записать файл учетных данных: %w", err)
	}

	return nil
}

// deriveKey выводит ключ шифрования из идентификатора устройства.
func (s *Store) deriveKey() ([]byte, error) {
	id, err := s.deviceID()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить идентификатор устройства: %w", err)
	}
	return pbkdf2.Key([]byte(id), []byte(keySalt), keyIterations, keyLength, sha256.New), nil
}

// encrypt шифрует payload. Формат файла: nonce || ciphertext.
func (s *Store) encrypt(payload []byte) ([]byte, error) {
	aead, err := s.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("не удалось сгенерировать nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, payload, nil), nil
}

// decrypt расшифровывает содержимое файла.
func (s *Store) decrypt(data []byte) ([]byte, error) {
	aead, err := s.aead()
	if err != nil {
		return nil, err
	}

	if len(data) < aead.NonceSize() {
		return nil, fmt.Errorf("файл учетных данных слишком короткий")
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

// aead собирает AES-GCM с ключом текущего устройства.
func (s *Store) aead() (cipher.AEAD, error) {
	key, err := s.deriveKey()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("не удалось инициализировать шифр: %w", err)
	}

	return cipher.NewGCM(block)
}
