package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ajayprojects/portal/internal/api/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatWSOutbound struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Messages any    `json:"messages,omitempty"`
}

// ChatWS upgrades the connection and streams assistant replies as delta
// frames. A send arriving while a reply is still streaming is dropped
// without acknowledgement, mirroring the portal UI's typing guard.
func (h *Handlers) ChatWS(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	session := h.Chat.Session(clientID)

	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	pushChatWS(writeCh, chatWSOutbound{Type: "history", Messages: session.Messages()})

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushChatWS(writeCh, chatWSOutbound{Type: "pong"})
		case "send":
			// Send blocks for the whole stream, so it runs off the read
			// loop. The session's typing guard drops overlapping sends.
			go func(text string) {
				accepted := session.Send(ctx, text, func(delta string) {
					pushChatWS(writeCh, chatWSOutbound{Type: "delta", Text: delta})
				})
				if !accepted {
					return
				}
				msgs := session.Messages()
				pushChatWS(writeCh, chatWSOutbound{Type: "done", Text: msgs[len(msgs)-1].Text})
			}(in.Text)
		default:
			pushChatWS(writeCh, chatWSOutbound{Type: "error", Text: "unsupported type"})
		}
	}
}

// pushChatWS never blocks the stream callback: when the write buffer is
// full the oldest frame is shed.
func pushChatWS(writeCh chan chatWSOutbound, out chatWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
		log.Debug().Str("type", out.Type).Msg("Chat frame dropped")
	}
}
