package rentals

import "sync"

// Hub は未返却一覧の変更購読。貸出・返却・メモ更新のたびに
// スナップショット全体を配り直す。
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func([]RentalResponse)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func([]RentalResponse))}
}

// Subscribe は購読を登録し、解除関数を返す。解除後に cb が
// 呼ばれることはない。
func (h *Hub) Subscribe(cb func([]RentalResponse)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = cb

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *Hub) Empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs) == 0
}

// Notify は登録中の全購読者へスナップショットを配る。
// ロックを持ったまま cb を呼ぶので、cb 内から Subscribe/cancel を
// 呼んではいけない。
func (h *Hub) Notify(snapshot []RentalResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cb := range h.subs {
		cb(snapshot)
	}
}
