package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"telegram-history-exporter/internal/adapters/consumer"
	"telegram-history-exporter/internal/credstore"
	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/events"
	"telegram-history-exporter/internal/export"
	applog "telegram-history-exporter/internal/log"
	"telegram-history-exporter/internal/pkg/config"
	"telegram-history-exporter/internal/pkg/term"
	"telegram-history-exporter/internal/ports"
	"telegram-history-exporter/internal/resolver"
	"telegram-history-exporter/internal/session"
	"telegram-history-exporter/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера с маскировкой секретов
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := applog.NewMaskedLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Учетные данные: хранилище -> конфигурация -> интерактивный ввод
	prompter := term.NewPrompter()
	store := credstore.New(cfg.Security.CredentialsFile, credstore.WithLogger(logger))
	creds, err := resolveCredentials(cfg, store, prompter)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	// 5. Сборка ядра: консольный потребитель, диспетчер событий, резолвер,
	// конвейер экспорта и сессия
	ui := consumer.NewConsole(os.Stdout)
	dispatcher := events.NewDispatcher(ui, events.WithLogger(logger))
	defer dispatcher.Close()

	directory := resolver.NewService(dispatcher,
		resolver.WithLogger(logger),
		resolver.WithParticipantLimit(cfg.Export.ParticipantLimit),
	)
	pipeline := export.NewPipeline(dispatcher,
		export.WithLogger(logger),
		export.WithRoot(cfg.Export.Dir),
		export.WithProgressEvery(cfg.Export.ProgressEvery),
	)
	factory := func(creds domain.Credentials) (ports.ProtocolClient, error) {
		return telegram.NewClient(telegram.Config{
			APIID:       creds.APIID,
			APIHash:     creds.APIHash,
			SessionPath: cfg.TelegramAPI.SessionFile,
		}, telegram.WithLogger(logger)), nil
	}
	runner := session.NewRunner(factory, dispatcher, directory, pipeline, session.WithLogger(logger))
	defer runner.Shutdown()

	// 6. Вход и цикл событий
	runner.StartLogin(creds)
	return eventLoop(runner, ui, prompter)
}

// eventLoop обрабатывает события ядра и передает решения пользователя
// обратно в сессию, пока экспорт не завершится или не произойдет ошибка.
func eventLoop(runner *session.Runner, ui *consumer.Console, prompter *term.Prompter) error {
	for {
		select {
		case <-ui.CodeRequested:
			code, err := prompter.Line("Enter code: ")
			if err != nil {
				return err
			}
			runner.SubmitCode(code)

		case <-ui.PasswordRequested:
			password, err := prompter.Secret("Enter 2FA password: ")
			if err != nil {
				return err
			}
			runner.SubmitPassword(password)

		case <-ui.LoggedIn:
			// Сессия сама продолжит перечислением диалогов.

		case dialogs := <-ui.Dialogs:
			job, err := promptJob(runner, ui, prompter, dialogs)
			if err != nil {
				return err
			}
			if len(job.DialogIDs) == 0 {
				fmt.Println("Nothing selected, exiting.")
				return nil
			}
			runner.StartExport(job)

		case message := <-ui.Errors:
			return fmt.Errorf("%s", message)

		case <-ui.Finished:
			fmt.Println("Export finished.")
			return nil
		}
	}
}

// promptJob собирает задание экспорта: выбор диалогов, классов содержимого
// и необязательного фильтра по отправителю.
func promptJob(runner *session.Runner, ui *consumer.Console, prompter *term.Prompter, dialogs []domain.Dialog) (domain.ExportJob, error) {
	fmt.Println("Dialogs:")
	for i, d := range dialogs {
		kind := "chat"
		switch {
		case d.IsChannel:
			kind = "channel"
		case d.IsGroup:
			kind = "group"
		}
		fmt.Printf("%4d. %s (%s)\n", i+1, d.Title, kind)
	}

	selected, err := prompter.Line("Select dialogs (comma-separated numbers): ")
	if err != nil {
		return domain.ExportJob{}, err
	}
	var job domain.ExportJob
	for _, field := range strings.Split(selected, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(dialogs) {
			fmt.Printf("Skipping invalid selection %q\n", field)
			continue
		}
		job.DialogIDs = append(job.DialogIDs, dialogs[n-1].ID)
	}
	if len(job.DialogIDs) == 0 {
		return job, nil
	}

	flags, err := prompter.Line("Content to export (t=text p=photos v=voice m=video f=files): ")
	if err != nil {
		return domain.ExportJob{}, err
	}
	job.Options = domain.ExportOptions{
		Text:   strings.ContainsRune(flags, 't'),
		Photos: strings.ContainsRune(flags, 'p'),
		Voice:  strings.ContainsRune(flags, 'v'),
		Video:  strings.ContainsRune(flags, 'm'),
		Files:  strings.ContainsRune(flags, 'f'),
	}

	answer, err := prompter.Line("Filter by a single sender? [y/N]: ")
	if err != nil {
		return domain.ExportJob{}, err
	}
	if strings.EqualFold(answer, "y") {
		runner.FetchParticipants(job.DialogIDs[0])
		select {
		case participants := <-ui.Participants:
			if len(participants) == 0 {
				fmt.Println("No participants found, exporting without filter.")
				return job, nil
			}
			fmt.Println("Participants:")
			for i, p := range participants {
				fmt.Printf("%4d. %s\n", i+1, p.DisplayName())
			}
			choice, err := prompter.Line("Select sender number: ")
			if err != nil {
				return domain.ExportJob{}, err
			}
			n, err := strconv.Atoi(strings.TrimSpace(choice))
			if err == nil && n >= 1 && n <= len(participants) {
				id := participants[n-1].ID
				job.FilterSenderID = &id
			} else {
				fmt.Println("Invalid selection, exporting without filter.")
			}
		case message := <-ui.Errors:
			return domain.ExportJob{}, fmt.Errorf("%s", message)
		}
	}

	return job, nil
}

// resolveCredentials находит учетные данные: сперва зашифрованное
// хранилище, затем конфигурация, затем интерактивный ввод. Данные,
// полученные не из хранилища, сохраняются для следующих запусков.
func resolveCredentials(cfg *config.Config, store ports.CredentialStore, prompter *term.Prompter) (domain.Credentials, error) {
	creds, found, err := store.Load()
	if err != nil {
		return domain.Credentials{}, err
	}
	if found {
		return creds, nil
	}

	if cfg.HasCredentials() {
		creds = domain.Credentials{
			APIID:   cfg.TelegramAPI.APIID,
			APIHash: cfg.TelegramAPI.APIHash,
			Phone:   cfg.TelegramAPI.PhoneNumber,
		}
	} else {
		apiIDStr, err := prompter.Line("API ID: ")
		if err != nil {
			return domain.Credentials{}, err
		}
		apiID, err := strconv.Atoi(apiIDStr)
		if err != nil {
			return domain.Credentials{}, fmt.Errorf("недопустимый API ID: %w", err)
		}
		apiHash, err := prompter.Line("API hash: ")
		if err != nil {
			return domain.Credentials{}, err
		}
		phone, err := prompter.Line("Phone number: ")
		if err != nil {
			return domain.Credentials{}, err
		}
		creds = domain.Credentials{APIID: apiID, APIHash: apiHash, Phone: phone}
	}

	if err := store.Save(creds); err != nil {
		// Не фатально: просто придется вводить данные снова.
		slog.Warn("Failed to save credentials", "error", err)
	}
	return creds, nil
}
