package session

import (
	"context"
	"errors"
	"fmt"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/pkg/future"
	"telegram-history-exporter/internal/ports"
)

// login ведет машину состояний входа: проверка сохраненной сессии, запрос
// кода, необязательный пароль 2FA, получение профиля. На шагах кода и
// пароля фоновая горутина приостанавливается на слоте однократного
// присваивания без таймаута: ввод учетных данных внешний и не ограничен
// по времени. Любой сбой завершает попытку; автоматических повторов нет.
func (r *Runner) login(ctx context.Context, client ports.ProtocolClient, creds domain.Credentials) error {
	authorized, err := client.IsAuthorized(ctx)
	if err != nil {
		return fmt.Errorf("проверка авторизации: %w", err)
	}

	if !authorized {
		if err := client.RequestCode(ctx, creds.Phone); err != nil {
			return fmt.Errorf("запрос кода: %w", err)
		}

		code, err := r.awaitCode(ctx)
		if err != nil {
			return err
		}

		err = client.SignInCode(ctx, creds.Phone, code)
		switch {
		case errors.Is(err, ports.ErrPasswordNeeded):
			password, perr := r.awaitPassword(ctx)
			if perr != nil {
				return perr
			}
			if err := client.SignInPassword(ctx, password); err != nil {
				return fmt.Errorf("вход по паролю: %w", err)
			}
		case err != nil:
			// Неверный код без требования пароля фатален для попытки:
			// повторный ввод возможен только через новый StartLogin.
			return fmt.Errorf("вход по коду: %w", err)
		}
	}

	profile, err := client.Profile(ctx)
	if err != nil {
		return fmt.Errorf("получение профиля: %w", err)
	}

	r.log.Info("Login successful", "user_id", profile.ID)
	r.sink.OnLoginSuccess(profile)
	return nil
}

// awaitCode вооружает слот кода, уведомляет потребителя и блокируется до
// поставки значения. Слот вооружается до уведомления, чтобы SubmitCode,
// вызванный сразу из обработчика события, не потерялся.
func (r *Runner) awaitCode(ctx context.Context) (string, error) {
	slot := future.New[string]()
	r.mu.Lock()
	r.code = slot
	r.mu.Unlock()

	r.sink.OnCodeRequested()
	code, err := slot.Await(ctx)

	r.mu.Lock()
	r.code = nil
	r.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("ожидание кода: %w", err)
	}
	return code, nil
}

// awaitPassword — то же для пароля 2FA.
func (r *Runner) awaitPassword(ctx context.Context) (string, error) {
	slot := future.New[string]()
	r.mu.Lock()
	r.password = slot
	r.mu.Unlock()

	r.sink.OnPasswordRequested()
	password, err := slot.Await(ctx)

	r.mu.Lock()
	r.password = nil
	r.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("ожидание пароля: %w", err)
	}
	return password, nil
}
