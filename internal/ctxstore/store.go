package ctxstore

import (
	"errors"
	"fmt"
	"sync"
)

// Ошибки контракта Context Store.
// Это ошибки программирования или конфигурации: они фатальны
// для стадии и не подлежат retry.
var (
	// ErrDuplicateWrite — ключ (stageID, key) уже записан.
	ErrDuplicateWrite = errors.New("context key already written")

	// ErrUnresolvedKey — ключ ещё не записан производителем.
	ErrUnresolvedKey = errors.New("context key not written")

	// ErrNotAnAncestor — читающая стадия не зависит (транзитивно)
	// от производителя значения.
	ErrNotAnAncestor = errors.New("producer is not an ancestor of requesting stage")
)

// AncestorFunc сообщает, является ли producer транзитивным
// предшественником requester в графе run.
type AncestorFunc func(producer, requester string) bool

// Store — write-once хранилище значений, передаваемых между стадиями.
//
// Потокобезопасен: последовательность "проверить-затем-записать"
// сериализуется мьютексом, других разделяемых мутаций в run нет.
type Store struct {
	mu         sync.Mutex
	values     map[string]map[string]string // stageID → key → value
	isAncestor AncestorFunc
}

// New создаёт Store для одного run.
// isAncestor обычно — graph.IsAncestor валидированного графа.
func New(isAncestor AncestorFunc) *Store {
	return &Store{
		values:     make(map[string]map[string]string),
		isAncestor: isAncestor,
	}
}

// Put записывает значение от имени стадии stageID.
// Повторная запись того же ключа возвращает ErrDuplicateWrite.
func (s *Store) Put(stageID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byStage, ok := s.values[stageID]
	if !ok {
		byStage = make(map[string]string)
		s.values[stageID] = byStage
	}
	if _, exists := byStage[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateWrite, stageID, key)
	}
	byStage[key] = value
	return nil
}

// Get читает значение, записанное producer, от имени requester.
//
// Возвращает ErrNotAnAncestor, если producer не является транзитивным
// предшественником requester (стадия может потреблять только то, от чего
// зависит), и ErrUnresolvedKey, если значение ещё не записано.
// Чтение собственных значений (requester == producer) разрешено.
func (s *Store) Get(requester, producer, key string) (string, error) {
	if requester != producer && (s.isAncestor == nil || !s.isAncestor(producer, requester)) {
		return "", fmt.Errorf("%w: %s reading %s/%s", ErrNotAnAncestor, requester, producer, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[producer][key]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnresolvedKey, producer, key)
	}
	return v, nil
}

// Snapshot возвращает копию всех значений store.
// Используется при финализации run: снимок попадает в Run.Values
// для потребителей завершённого run (Notifier).
func (s *Store) Snapshot() map[string]map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]string, len(s.values))
	for stageID, byStage := range s.values {
		cp := make(map[string]string, len(byStage))
		for k, v := range byStage {
			cp[k] = v
		}
		out[stageID] = cp
	}
	return out
}
