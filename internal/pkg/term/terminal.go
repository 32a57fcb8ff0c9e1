package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"
)

// Prompter обеспечивает интерактивный ввод значений через терминал:
// обычных строк и секретов без эха.
type Prompter struct {
	in           *bufio.Reader
	out          io.Writer
	stdinfd      int
	readPassword func(fd int) ([]byte, error)
}

// NewPrompter создает новый экземпляр Prompter на stdin/stdout.
func NewPrompter() *Prompter {
	return &Prompter{
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		stdinfd:      int(os.Stdin.Fd()),
		readPassword: term.ReadPassword,
	}
}

// Line выводит приглашение и читает одну строку, обрезая пробелы.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", xerrors.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Secret выводит приглашение и читает значение без эха (пароль 2FA).
func (p *Prompter) Secret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	raw, err := p.readPassword(p.stdinfd)
	if err != nil {
		return "", xerrors.Errorf("failed to read secret: %w", err)
	}
	fmt.Fprintln(p.out) // Новая строка после ввода
	return string(raw), nil
}
