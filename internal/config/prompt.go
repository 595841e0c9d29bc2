package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errInterrupted = errors.New("interrupted")

// Prompter 从 reader 读取交互输入，向 writer 输出提示，测试时可注入内存流
type Prompter struct {
	reader  io.Reader
	writer  io.Writer
	scanner *bufio.Scanner
}

func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{
		reader:  reader,
		writer:  writer,
		scanner: bufio.NewScanner(reader),
	}
}

// NewDefaultPrompter 使用 stdin 和 stdout
func NewDefaultPrompter() *Prompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// Prompt 显示提示并读取一行（去除首尾空白），EOF 时返回空字符串
func (p *Prompter) Prompt(message string) (string, error) {
	fmt.Fprint(p.writer, message)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// PromptWithDefault 输入为空时返回默认值
func (p *Prompter) PromptWithDefault(message, defaultValue string) (string, error) {
	result, err := p.Prompt(fmt.Sprintf("%s [%s]: ", message, defaultValue))
	if err != nil {
		return "", err
	}
	if result == "" {
		return defaultValue, nil
	}
	return result, nil
}

// PromptPassword 读取密钥。终端下每个字符回显为 '*'，非终端时按普通行读取
func (p *Prompter) PromptPassword(message string) (string, error) {
	fmt.Fprint(p.writer, message)

	if f, ok := p.reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := p.readPassword(f)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(p.writer)
		return string(secret), nil
	}

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// PromptConfirm 询问 y/n，空输入时返回 defaultYes
func (p *Prompter) PromptConfirm(message string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	result, err := p.Prompt(fmt.Sprintf("%s %s: ", message, hint))
	if err != nil {
		return false, err
	}
	result = strings.ToLower(result)
	if result == "" {
		return defaultYes, nil
	}
	return result == "y" || result == "yes", nil
}

// PromptSelect 列出选项并返回所选的索引（从 0 开始），空输入选第一个
func (p *Prompter) PromptSelect(message string, options []string) (int, error) {
	fmt.Fprintln(p.writer, message)
	for i, opt := range options {
		fmt.Fprintf(p.writer, "  %d) %s\n", i+1, opt)
	}

	result, err := p.Prompt("Select [1]: ")
	if err != nil {
		return 0, err
	}
	if result == "" {
		return 0, nil
	}

	var choice int
	if _, err := fmt.Sscanf(result, "%d", &choice); err != nil {
		return 0, fmt.Errorf("invalid choice: %s", result)
	}
	if choice < 1 || choice > len(options) {
		return 0, fmt.Errorf("choice out of range: %d", choice)
	}
	return choice - 1, nil
}

// readPassword 以 raw 模式逐字节读取，回显 '*' 并处理退格，返回时恢复终端状态
func (p *Prompter) readPassword(f *os.File) ([]byte, error) {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return term.ReadPassword(fd)
	}
	defer term.Restore(fd, oldState)

	var secret []byte
	buf := make([]byte, 1)
	for {
		n, err := f.Read(buf)
		if err != nil || n == 0 {
			break
		}
		switch ch := buf[0]; {
		case ch == '\r' || ch == '\n':
			return secret, nil
		case ch == 3: // Ctrl+C
			return nil, errInterrupted
		case ch == 127 || ch == 8:
			if len(secret) > 0 {
				secret = secret[:len(secret)-1]
				fmt.Fprint(p.writer, "\b \b")
			}
		default:
			secret = append(secret, ch)
			fmt.Fprint(p.writer, "*")
		}
	}
	return secret, nil
}
