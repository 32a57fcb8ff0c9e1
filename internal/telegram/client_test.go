package telegram

import (
	"context"
	"log/slog"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/require"

	"telegram-history-exporter/internal/domain"
	"telegram-history-exporter/internal/ports"
)

// mockRawAPI - мок-реализация rawAPI с функциями-полями.
type mockRawAPI struct {
	getDialogs      func(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	getHistory      func(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
	getParticipants func(ctx context.Context, request *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error)
	getFullChat     func(ctx context.Context, chatid int64) (*tg.MessagesChatFull, error)
	getUsers        func(ctx context.Context, request []tg.InputUserClass) ([]tg.UserClass, error)
}

func (m *mockRawAPI) MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
	return m.getDialogs(ctx, request)
}

func (m *mockRawAPI) MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	return m.getHistory(ctx, request)
}

func (m *mockRawAPI) ChannelsGetParticipants(ctx context.Context, request *tg.ChannelsGetParticipantsRequest) (tg.ChannelsChannelParticipantsClass, error) {
	return m.getParticipants(ctx, request)
}

func (m *mockRawAPI) MessagesGetFullChat(ctx context.Context, chatid int64) (*tg.MessagesChatFull, error) {
	return m.getFullChat(ctx, chatid)
}

func (m *mockRawAPI) UsersGetUsers(ctx context.Context, request []tg.InputUserClass) ([]tg.UserClass, error) {
	return m.getUsers(ctx, request)
}

// mockAuthAPI - мок-реализация authAPI.
type mockAuthAPI struct {
	authorized  bool
	signInErr   error
	gotCodeHash string
}

func (m *mockAuthAPI) Status(ctx context.Context) (*auth.Status, error) {
	return &auth.Status{Authorized: m.authorized}, nil
}

func (m *mockAuthAPI) SendCode(ctx context.Context, phone string, options auth.SendCodeOptions) (tg.AuthSentCodeClass, error) {
	return &tg.AuthSentCode{PhoneCodeHash: "test-code-hash"}, nil
}

func (m *mockAuthAPI) SignIn(ctx context.Context, phone, code, codeHash string) (*tg.AuthAuthorization, error) {
	m.gotCodeHash = codeHash
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return &tg.AuthAuthorization{}, nil
}

func (m *mockAuthAPI) Password(ctx context.Context, password string) (*tg.AuthAuthorization, error) {
	return &tg.AuthAuthorization{}, nil
}

func newMockedClient(api rawAPI, authClient authAPI) *Client {
	return &Client{
		id:   "test-client",
		api:  api,
		auth: authClient,
		log:  slog.Default(),
	}
}

func newTextTgMessage(id int, fromUserID int64, text string) *tg.Message {
	msg := &tg.Message{ID: id, Message: text, Date: 1700000000}
	if fromUserID != 0 {
		msg.FromID = &tg.PeerUser{UserID: fromUserID}
	}
	msg.SetFlags()
	return msg
}

func TestIsAuthorized(t *testing.T) {
	client := newMockedClient(nil, &mockAuthAPI{authorized: true})

	ok, err := client.IsAuthorized(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignInCode(t *testing.T) {
	t.Run("phone_code_hash из RequestCode передается в SignIn", func(t *testing.T) {
		authClient := &mockAuthAPI{}
		client := newMockedClient(nil, authClient)

		require.NoError(t, client.RequestCode(context.Background(), "+79990001122"))
		require.NoError(t, client.SignInCode(context.Background(), "+79990001122", "12345"))
		require.Equal(t, "test-code-hash", authClient.gotCodeHash)
	})

	t.Run("требование пароля транслируется в ErrPasswordNeeded", func(t *testing.T) {
		authClient := &mockAuthAPI{signInErr: auth.ErrPasswordAuthNeeded}
		client := newMockedClient(nil, authClient)

		err := client.SignInCode(context.Background(), "+79990001122", "12345")
		require.ErrorIs(t, err, ports.ErrPasswordNeeded)
	})
}

func TestIterDialogs(t *testing.T) {
	api := &mockRawAPI{
		getDialogs: func(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error) {
			return &tg.MessagesDialogs{
				Dialogs: []tg.DialogClass{
					&tg.Dialog{Peer: &tg.PeerUser{UserID: 1}, TopMessage: 50},
					&tg.Dialog{Peer: &tg.PeerChat{ChatID: 2}, TopMessage: 60},
					&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 3}, TopMessage: 70},
					// Пир без сущности в ответе пропускается.
					&tg.Dialog{Peer: &tg.PeerUser{UserID: 404}},
				},
				Users: []tg.UserClass{
					&tg.User{ID: 1, FirstName: "Anna", LastName: "K", AccessHash: 11},
				},
				Chats: []tg.ChatClass{
					&tg.Chat{ID: 2, Title: "Old Group"},
					&tg.Channel{ID: 3, Title: "News", Broadcast: true, AccessHash: 33},
				},
			}, nil
		},
	}
	client := newMockedClient(api, nil)

	var dialogs []domain.Dialog
	err := client.IterDialogs(context.Background(), func(d domain.Dialog) error {
		dialogs = append(dialogs, d)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, dialogs, 3)

	require.Equal(t, "Anna K", dialogs[0].Title)
	require.False(t, dialogs[0].IsGroup)
	require.IsType(t, &tg.InputPeerUser{}, dialogs[0].Entity)

	require.Equal(t, "Old Group", dialogs[1].Title)
	require.True(t, dialogs[1].IsGroup)
	require.IsType(t, &tg.InputPeerChat{}, dialogs[1].Entity)

	require.Equal(t, "News", dialogs[2].Title)
	require.True(t, dialogs[2].IsChannel)
	require.False(t, dialogs[2].IsGroup)
	require.IsType(t, &tg.InputPeerChannel{}, dialogs[2].Entity)
}

func TestIterMessages(t *testing.T) {
	t.Run("сообщения отдаются с именами отправителей, служебные пропускаются", func(t *testing.T) {
		api := &mockRawAPI{
			getHistory: func(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
				return &tg.MessagesMessagesSlice{
					Messages: []tg.MessageClass{
						newTextTgMessage(3, 100, "newest"),
						&tg.MessageService{ID: 2},
						newTextTgMessage(1, 200, "oldest"),
					},
					Users: []tg.UserClass{
						&tg.User{ID: 100, FirstName: "Anna"},
						&tg.User{ID: 200, FirstName: "Boris"},
					},
				}, nil
			},
		}
		client := newMockedClient(api, nil)

		var got []domain.Message
		err := client.IterMessages(context.Background(), tg.InputPeerClass(&tg.InputPeerUser{UserID: 100}), func(m domain.Message) error {
			got = append(got, m)
			return nil
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "Anna", got[0].SenderName)
		require.Equal(t, "newest", got[0].Text)
		require.Equal(t, "Boris", got[1].SenderName)
		require.Equal(t, int64(200), got[1].SenderID)
	})

	t.Run("пагинация продвигается по последнему сообщению страницы", func(t *testing.T) {
		var offsets []int
		api := &mockRawAPI{
			getHistory: func(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
				offsets = append(offsets, request.OffsetID)
				if request.OffsetID != 0 {
					return &tg.MessagesMessagesSlice{}, nil
				}
				page := &tg.MessagesMessagesSlice{}
				for id := 2*historyPageSize; id > historyPageSize; id-- {
					page.Messages = append(page.Messages, newTextTgMessage(id, 100, "m"))
				}
				return page, nil
			},
		}
		client := newMockedClient(api, nil)

		count := 0
		err := client.IterMessages(context.Background(), tg.InputPeerClass(&tg.InputPeerEmpty{}), func(m domain.Message) error {
			count++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, historyPageSize, count)
		require.Equal(t, []int{0, historyPageSize + 1}, offsets)
	})

	t.Run("неожиданный дескриптор пира - ошибка", func(t *testing.T) {
		client := newMockedClient(nil, nil)
		err := client.IterMessages(context.Background(), "not-a-peer", func(m domain.Message) error { return nil })
		require.Error(t, err)
	})
}

func TestSenderOf(t *testing.T) {
	client := newMockedClient(nil, nil)
	client.selfID = 42
	peer := &tg.InputPeerUser{UserID: 77}

	t.Run("явный FromID имеет приоритет", func(t *testing.T) {
		msg := newTextTgMessage(1, 100, "hi")
		require.Equal(t, int64(100), client.senderOf(msg, peer))
	})

	t.Run("исходящее без FromID принадлежит текущему пользователю", func(t *testing.T) {
		msg := &tg.Message{ID: 1, Out: true}
		msg.SetFlags()
		require.Equal(t, int64(42), client.senderOf(msg, peer))
	})

	t.Run("входящее без FromID в личном чате принадлежит собеседнику", func(t *testing.T) {
		msg := &tg.Message{ID: 1}
		msg.SetFlags()
		require.Equal(t, int64(77), client.senderOf(msg, peer))
	})
}

func TestExtractMedia(t *testing.T) {
	t.Run("сообщение без вложения", func(t *testing.T) {
		info, ref := extractMedia(newTextTgMessage(1, 0, "text only"))
		require.Nil(t, info)
		require.Nil(t, ref)
	})

	t.Run("фотография", func(t *testing.T) {
		photo := &tg.Photo{
			ID:         111,
			AccessHash: 222,
			Sizes: []tg.PhotoSizeClass{
				&tg.PhotoSize{Type: "s"},
				&tg.PhotoSize{Type: "y"},
			},
		}
		media := &tg.MessageMediaPhoto{Photo: photo}
		media.SetFlags()
		msg := &tg.Message{ID: 5, Media: media}
		msg.SetFlags()

		info, ref := extractMedia(msg)
		require.NotNil(t, info)
		require.True(t, info.Photo)
		require.False(t, info.Document)
		require.Equal(t, "photo_5.jpg", info.Filename)

		loc, ok := ref.(*tg.InputPhotoFileLocation)
		require.True(t, ok)
		require.Equal(t, int64(111), loc.ID)
		// Выбирается самый крупный размер.
		require.Equal(t, "y", loc.ThumbSize)
	})

	t.Run("голосовое сообщение", func(t *testing.T) {
		doc := &tg.Document{
			ID: 333,
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeAudio{Voice: true},
			},
		}
		media := &tg.MessageMediaDocument{Document: doc}
		media.SetFlags()
		msg := &tg.Message{ID: 6, Media: media}
		msg.SetFlags()

		info, ref := extractMedia(msg)
		require.NotNil(t, info)
		require.True(t, info.Voice)
		require.True(t, info.Document)
		require.False(t, info.Video)
		require.Equal(t, "voice_6.oga", info.Filename)
		require.IsType(t, &tg.InputDocumentFileLocation{}, ref)
	})

	t.Run("видео", func(t *testing.T) {
		doc := &tg.Document{
			ID: 444,
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeVideo{},
			},
		}
		media := &tg.MessageMediaDocument{Document: doc}
		media.SetFlags()
		msg := &tg.Message{ID: 7, Media: media}
		msg.SetFlags()

		info, _ := extractMedia(msg)
		require.NotNil(t, info)
		require.True(t, info.Video)
		require.False(t, info.Voice)
		require.Equal(t, "video_7.mp4", info.Filename)
	})

	t.Run("документ с именем файла", func(t *testing.T) {
		doc := &tg.Document{
			ID: 555,
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeFilename{FileName: "report.pdf"},
			},
		}
		media := &tg.MessageMediaDocument{Document: doc}
		media.SetFlags()
		msg := &tg.Message{ID: 8, Media: media}
		msg.SetFlags()

		info, _ := extractMedia(msg)
		require.NotNil(t, info)
		require.True(t, info.Document)
		require.False(t, info.Voice)
		require.False(t, info.Video)
		require.Equal(t, "8_report.pdf", info.Filename)
	})

	t.Run("документ без атрибутов", func(t *testing.T) {
		media := &tg.MessageMediaDocument{Document: &tg.Document{ID: 666}}
		media.SetFlags()
		msg := &tg.Message{ID: 9, Media: media}
		msg.SetFlags()

		info, _ := extractMedia(msg)
		require.NotNil(t, info)
		require.Equal(t, "file_9.bin", info.Filename)
	})
}

func TestProfileName(t *testing.T) {
	tests := []struct {
		name string
		user *tg.User
		want string
	}{
		{"username имеет приоритет", &tg.User{Username: "anna_k", FirstName: "Anna"}, "anna_k"},
		{"имя и фамилия", &tg.User{FirstName: "Anna", LastName: "K"}, "Anna K"},
		{"только имя", &tg.User{FirstName: "Anna"}, "Anna"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, profileName(tt.user))
		})
	}
}
