package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/redisStore"
	"github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

var ErrUnknownChat = errors.New("invalid chat id")

// chats are Redis lists; the first element is an empty marker turn written by InitNewChat
type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisMessageStore(ctx context.Context, opts redisStore.Options) *RedisMessageStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisMessageStore)
	if s == nil {
		return nil
	}
	return NewRedisMessageStore(s)
}

func NewRedisMessageStore(s *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  s,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY).With("chat Id", chatId)
	log.Debug("validating chatId")
	isFound, err := s.store.Exists(ctx, chatId)
	if err != nil {
		log.Error("Failed to check if chatId exists", "err", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, id string, turn jobModel.ChatTurn) error {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY).With("chat Id", id)
	if !s.ValidateChatId(ctx, id) {
		log.Error("Failed Validation before saving", "err", ErrUnknownChat)
		return ErrUnknownChat
	}
	return s.saveTurn(ctx, id, turn)
}

func (s *RedisMessageStore) saveTurn(ctx context.Context, id string, turn jobModel.ChatTurn) error {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY).With("chat Id", id)
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	if err = s.store.ListPush(ctx, id, data); err != nil {
		log.Error("error saving chat", "error:", err)
		return err
	}
	if err = s.store.Expire(ctx, id, config.RedisMessageStoreTTL); err != nil {
		log.Warn("could not refresh chat ttl", "error", err)
	}
	log.Debug("Saved chat successfully")
	return nil
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY).With("chat Id", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, id); err != nil {
		log.Error("Error initializing chat", "error", err)
		return err
	}
	return s.saveTurn(ctx, id, jobModel.ChatTurn{})
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]jobModel.ChatTurn, error) {
	log := s.logger.FromContext(ctx, config.TRACE_ID_KEY).With("chat Id", chatId)
	log.Debug("Getting message history")

	res, err := s.store.ListGetLast(ctx, chatId, config.ChatHistoryTurns)
	if err != nil {
		log.Error("Error getting history", "error:", err)
		return nil, err
	}

	turns := make([]jobModel.ChatTurn, 0, len(res))
	for _, raw := range res {
		var turn jobModel.ChatTurn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			log.Warn("skipping unreadable chat turn", "error", err)
			continue
		}
		if turn.Question == "" && turn.Answer == "" {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
