package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/regod-app/regod-api/internal/dto"
	"github.com/regod-app/regod-api/internal/models"
	"github.com/regod-app/regod-api/internal/observability"
	"github.com/regod-app/regod-api/internal/rbac"
	"github.com/regod-app/regod-api/internal/repository"
)

const chatSendBufferSize = 32

// Chat failures callers can map to client errors.
var (
	ErrThreadNotFound    = errors.New("chat thread not found")
	ErrThreadForbidden   = errors.New("thread belongs to another conversation")
	ErrNoTeacherAssigned = errors.New("no teacher is assigned yet")
	ErrEmptyMessage      = errors.New("message content is empty after sanitization")
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        string
	Role          string
	ThreadID      uint
	CorrelationID string
	Context       context.Context
}

// ChatService manages student-teacher conversations over REST and websocket.
type ChatService interface {
	MyThread(ctx context.Context, studentID string) (dto.ChatThreadResponse, error)
	TeacherThreads(ctx context.Context, teacherID string) ([]dto.ChatThreadResponse, error)
	History(ctx context.Context, userID string, threadID uint, limit int) ([]dto.ChatMessageResponse, error)
	Send(ctx context.Context, userID, role string, req dto.SendMessageRequest) (dto.ChatMessageResponse, error)
	MarkRead(ctx context.Context, userID string, threadID uint) error
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
	Start(ctx context.Context)
}

type chatService struct {
	repo        repository.ChatRepository
	links       repository.TeacherLinkRepository
	notifier    NotificationService
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validate    *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	hub         *chatHub
	nodeID      string
}

// chatHub keeps track of active websocket clients per thread.
type chatHub struct {
	mu      sync.RWMutex
	threads map[uint]map[*chatClient]struct{}
	log     zerolog.Logger
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatMessageResponse
	options ChatConnectionOptions
	service *chatService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type chatEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sent_at"`
}

// NewChatService creates the chat service instance. Redis pub/sub and NATS
// fan events out to other nodes; either may be nil.
func NewChatService(
	repo repository.ChatRepository,
	links repository.TeacherLinkRepository,
	notifier NotificationService,
	redisClient *redis.Client,
	natsConn *nats.Conn,
	validate *validator.Validate,
	logger zerolog.Logger,
) ChatService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	return &chatService{
		repo:        repo,
		links:       links,
		notifier:    notifier,
		redis:       redisClient,
		redisStream: "regod:chat",
		nats:        natsConn,
		natsSubject: "regod.chat",
		validate:    validate,
		sanitizer:   sanitizer,
		logger:      logger.With().Str("component", "chat_service").Logger(),
		hub: &chatHub{
			threads: make(map[uint]map[*chatClient]struct{}),
			log:     logger.With().Str("component", "chat_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *chatService) Start(ctx context.Context) {
	if s.redis != nil {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil {
		go s.consumeNATS(ctx)
	}
}

// MyThread returns the student's conversation, creating it on first use. The
// assigned teacher is attached once a link exists.
func (s *chatService) MyThread(ctx context.Context, studentID string) (dto.ChatThreadResponse, error) {
	var teacherID *string
	if link, err := s.links.FirstActiveForStudent(ctx, studentID); err == nil {
		teacherID = &link.TeacherID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ChatThreadResponse{}, err
	}

	thread, err := s.repo.GetOrCreateThread(ctx, studentID, teacherID)
	if err != nil {
		return dto.ChatThreadResponse{}, err
	}

	return s.threadResponse(ctx, thread, studentID)
}

func (s *chatService) TeacherThreads(ctx context.Context, teacherID string) ([]dto.ChatThreadResponse, error) {
	threads, err := s.repo.ListThreadsByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ChatThreadResponse, 0, len(threads))
	for _, thread := range threads {
		response, err := s.threadResponse(ctx, thread, teacherID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (s *chatService) History(ctx context.Context, userID string, threadID uint, limit int) ([]dto.ChatMessageResponse, error) {
	if _, err := s.authorisedThread(ctx, userID, threadID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 100
	}

	messages, err := s.repo.ListMessages(ctx, threadID, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, messageResponse(message))
	}

	return responses, nil
}

func (s *chatService) Send(ctx context.Context, userID, role string, req dto.SendMessageRequest) (dto.ChatMessageResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	thread, err := s.resolveThread(ctx, userID, role, req.ThreadID)
	if err != nil {
		return dto.ChatMessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if clean == "" {
		return dto.ChatMessageResponse{}, ErrEmptyMessage
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = "text"
	}

	senderType := models.SenderTypeStudent
	if thread.StudentID != userID {
		senderType = models.SenderTypeTeacher
	}

	message := models.ChatMessage{
		ThreadID:    thread.ID,
		SenderID:    userID,
		SenderType:  senderType,
		Content:     clean,
		MessageType: messageType,
	}
	if err := s.repo.CreateMessage(ctx, &message); err != nil {
		return dto.ChatMessageResponse{}, err
	}

	response := messageResponse(message)
	s.hub.broadcast(thread.ID, response)
	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish chat event")
	}
	s.notifyRecipient(ctx, thread, userID, clean)

	observability.ChatMessages().WithLabelValues(messageType).Inc()

	return response, nil
}

func (s *chatService) MarkRead(ctx context.Context, userID string, threadID uint) error {
	if _, err := s.authorisedThread(ctx, userID, threadID); err != nil {
		return err
	}

	return s.repo.MarkRead(ctx, threadID, userID)
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	if _, err := s.authorisedThread(baseCtx, opts.UserID, opts.ThreadID); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", opts.UserID).
			Uint("thread_id", opts.ThreadID).
			Msg("rejecting websocket connection")
		_ = conn.Close()
		return
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.ChatMessageResponse, chatSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)
	observability.ChatConnections().Inc()

	go client.writer()
	client.reader()
}

// resolveThread finds the conversation a message belongs in. Students always
// post into their own thread; teachers must name one of theirs.
func (s *chatService) resolveThread(ctx context.Context, userID, role string, threadID *uint) (models.ChatThread, error) {
	if threadID != nil {
		return s.authorisedThread(ctx, userID, *threadID)
	}

	if role == rbac.RoleTeacher || role == rbac.RoleAdmin {
		return models.ChatThread{}, ErrThreadNotFound
	}

	var teacherID *string
	if link, err := s.links.FirstActiveForStudent(ctx, userID); err == nil {
		teacherID = &link.TeacherID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChatThread{}, err
	}

	return s.repo.GetOrCreateThread(ctx, userID, teacherID)
}

func (s *chatService) authorisedThread(ctx context.Context, userID string, threadID uint) (models.ChatThread, error) {
	thread, err := s.repo.GetThread(ctx, threadID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChatThread{}, ErrThreadNotFound
	}
	if err != nil {
		return models.ChatThread{}, err
	}

	if thread.StudentID == userID {
		return thread, nil
	}
	if thread.TeacherID != nil && *thread.TeacherID == userID {
		return thread, nil
	}

	return models.ChatThread{}, ErrThreadForbidden
}

func (s *chatService) notifyRecipient(ctx context.Context, thread models.ChatThread, senderID, content string) {
	if s.notifier == nil {
		return
	}

	recipientID := thread.StudentID
	if thread.StudentID == senderID {
		if thread.TeacherID == nil {
			return
		}
		recipientID = *thread.TeacherID
	}

	preview := content
	if len(preview) > 120 {
		preview = preview[:120]
	}

	if err := s.notifier.Notify(ctx, recipientID, "chat_message", preview); err != nil {
		s.logger.Warn().Err(err).Str("recipient_id", recipientID).Msg("failed to deliver chat notification")
	}
}

func (s *chatService) publish(ctx context.Context, message dto.ChatMessageResponse) error {
	event := chatEvent{
		Source:  s.nodeID,
		Message: message,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *chatService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *chatService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "regod-chat", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (s *chatService) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.Message.ThreadID, event.Message)
}

func (s *chatService) threadResponse(ctx context.Context, thread models.ChatThread, viewerID string) (dto.ChatThreadResponse, error) {
	unread, err := s.repo.CountUnread(ctx, thread.ID, viewerID)
	if err != nil {
		return dto.ChatThreadResponse{}, err
	}

	return dto.ChatThreadResponse{
		ID:          thread.ID,
		StudentID:   thread.StudentID,
		TeacherID:   thread.TeacherID,
		UnreadCount: unread,
		CreatedAt:   thread.CreatedAt,
	}, nil
}

func messageResponse(message models.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:          message.ID,
		ThreadID:    message.ThreadID,
		SenderID:    message.SenderID,
		SenderType:  message.SenderType,
		Content:     message.Content,
		MessageType: message.MessageType,
		ReadStatus:  message.ReadStatus,
		CreatedAt:   message.CreatedAt,
	}
}

func (h *chatHub) register(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	thread := client.options.ThreadID
	if _, exists := h.threads[thread]; !exists {
		h.threads[thread] = make(map[*chatClient]struct{})
	}
	h.threads[thread][client] = struct{}{}
	h.log.Debug().Uint("thread_id", thread).Str("user_id", client.options.UserID).Msg("chat client connected")
}

func (h *chatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	thread := client.options.ThreadID
	if clients, ok := h.threads[thread]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.threads, thread)
		}
	}
	h.log.Debug().Uint("thread_id", thread).Str("user_id", client.options.UserID).Msg("chat client disconnected")
}

func (h *chatHub) broadcast(threadID uint, message dto.ChatMessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.threads[threadID] {
		select {
		case client.send <- message:
		default:
			h.log.Warn().
				Uint("thread_id", threadID).
				Str("user_id", client.options.UserID).
				Msg("dropping chat message for slow client")
		}
	}
}

func (c *chatClient) reader() {
	defer c.close()

	for {
		var payload dto.SendMessageRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		if payload.ThreadID == nil {
			threadID := c.options.ThreadID
			payload.ThreadID = &threadID
		}

		if _, err := c.service.Send(c.baseCtx, c.options.UserID, c.options.Role, payload); err != nil {
			c.service.logger.Warn().Err(err).Msg("failed to process chat message")

			select {
			case <-c.closed:
				return
			default:
			}
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}

// ParseThreadID converts the websocket route parameter.
func ParseThreadID(raw string) (uint, error) {
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid thread id %q", raw)
	}

	return uint(value), nil
}
