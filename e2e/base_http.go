package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"duochat/api"
	"duochat/auth"
	"duochat/contract"
	"duochat/domain"
	"duochat/observability"
	"duochat/projection"
	"duochat/repositories"
	"duochat/runtime/workers"
	"duochat/search"
	"duochat/services"
	"duochat/transport"
)

const ingestWorkers = 3

// BaseHTTPSuite runs the full stack in-process: Badger and Bluge on temp
// dirs, the transport queue, supervised ingest workers and the HTTP router
// behind an httptest server.
type BaseHTTPSuite struct {
	suite.Suite
	Config Config

	server  *httptest.Server
	queue   *transport.Queue
	db      *badger.DB
	index   *search.MessageIndex
	cancel  context.CancelFunc
	supDone chan struct{}
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseHTTPSuite) SetupTest() {
	log := logs.GetLoggerFromString(s.Config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	index, err := search.Open(s.T().TempDir(), log)
	s.Require().NoError(err)
	s.index = index

	conversationRepository := repositories.NewConversationRepository(db, log)
	userRepository := repositories.NewUserRepository(db)
	resolver := services.NewConversationResolver(conversationRepository)
	history := projection.NewHistory(conversationRepository)
	s.queue = transport.NewQueue(64, log)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	sup := workers.NewSupervisor(log)
	ingesters := make([]contract.Worker, 0, ingestWorkers)
	for i := 0; i < ingestWorkers; i++ {
		ingesters = append(ingesters, workers.NewIngestWorker(
			s.queue.Events(), conversationRepository, resolver, nil, index, metrics, log))
	}
	s.supDone = make(chan struct{})
	go func() {
		sup.Add(ingesters...).Run(ctx)
		close(s.supDone)
	}()

	tokens := auth.NewTokenManager([]byte("e2e-secret"), "duochat", time.Hour)
	messageService := services.NewMessageService(s.queue, history, index, log)
	userService := services.NewUserService(userRepository, log)
	server := api.NewServer(userService, messageService, tokens, metrics, log)
	s.server = httptest.NewServer(server.Router(registry, auth.LimitConfig{RPS: 1000, Burst: 1000}))
}

func (s *BaseHTTPSuite) TearDownTest() {
	s.server.Close()
	// Closing the queue drains the pipeline: workers finish the buffered
	// events before reporting completion.
	s.queue.Close()
	select {
	case <-s.supDone:
	case <-time.After(5 * time.Second):
		s.cancel()
		<-s.supDone
	}
	s.cancel()
	s.Require().NoError(s.index.Close())
	s.Require().NoError(s.db.Close())
}

// Step prints a colorized header so scenario phases are visible in logs.
func (s *BaseHTTPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func (s *BaseHTTPSuite) request(method, path, userID string, body any) (int, []byte) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if userID != "" {
		req.Header.Set(auth.HeaderUserID, userID)
	}

	start := time.Now()
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	s.Require().NoError(err)

	logBuilder := strings.Builder{}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		fmt.Fprintln(&logBuilder, "\nRESPONSE:")
		fmt.Fprintln(&logBuilder, buf.String())
	}
	s.T().Log(logBuilder.String())

	return resp.StatusCode, buf.Bytes()
}

func (s *BaseHTTPSuite) CreateUser(nickname string) domain.User {
	status, body := s.request(http.MethodPost, "/users", "", map[string]string{"nickname": nickname})
	s.Require().Equal(http.StatusCreated, status, string(body))
	var user domain.User
	s.Require().NoError(json.Unmarshal(body, &user))
	return user
}

func (s *BaseHTTPSuite) SendMessage(senderID, recipientID, content string) domain.Message {
	status, body := s.request(http.MethodPost, "/users/"+senderID+"/messages", senderID,
		map[string]string{"recipient_id": recipientID, "content": content})
	s.Require().Equal(http.StatusCreated, status, string(body))
	var msg domain.Message
	s.Require().NoError(json.Unmarshal(body, &msg))
	return msg
}

func (s *BaseHTTPSuite) SentMessages(userID string) []domain.Message {
	status, body := s.request(http.MethodGet, "/users/"+userID+"/sent-messages", userID, nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	return s.decodeMessages(body)
}

func (s *BaseHTTPSuite) ReceivedMessages(userID, from string) []domain.Message {
	path := "/users/" + userID + "/received-messages"
	if from != "" {
		path += "?from=" + url.QueryEscape(from)
	}
	status, body := s.request(http.MethodGet, path, userID, nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	return s.decodeMessages(body)
}

func (s *BaseHTTPSuite) SearchMessages(userID, query string) []domain.Message {
	path := "/users/" + userID + "/messages/search?q=" + url.QueryEscape(query)
	status, body := s.request(http.MethodGet, path, userID, nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	return s.decodeMessages(body)
}

func (s *BaseHTTPSuite) decodeMessages(body []byte) []domain.Message {
	var messages []domain.Message
	s.Require().NoError(json.Unmarshal(body, &messages))
	return messages
}
