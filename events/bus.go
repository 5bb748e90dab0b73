package events

import "sync"

// Bus is an explicit observer registry for core events. Dispatch is
// synchronous on the publisher's goroutine, keeping all state mutation in
// one logical turn. Listeners must not block.
type Bus struct {
	mu              sync.RWMutex
	sessionChanged  []func(SessionChanged)
	sessionExpired  []func(SessionExpired)
	loginRequired   []func(LoginRequired)
	logoutCompleted []func(LogoutCompleted)
	fetchProgress   []func(FetchProgress)
	fetchError      []func(FetchError)
	status          []func(Status)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnSessionChanged(fn func(SessionChanged)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionChanged = append(b.sessionChanged, fn)
}

func (b *Bus) OnSessionExpired(fn func(SessionExpired)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionExpired = append(b.sessionExpired, fn)
}

func (b *Bus) OnLoginRequired(fn func(LoginRequired)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginRequired = append(b.loginRequired, fn)
}

func (b *Bus) OnLogoutCompleted(fn func(LogoutCompleted)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutCompleted = append(b.logoutCompleted, fn)
}

func (b *Bus) OnFetchProgress(fn func(FetchProgress)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchProgress = append(b.fetchProgress, fn)
}

func (b *Bus) OnFetchError(fn func(FetchError)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchError = append(b.fetchError, fn)
}

func (b *Bus) OnStatus(fn func(Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = append(b.status, fn)
}

func (b *Bus) PublishSessionChanged(e SessionChanged) {
	b.mu.RLock()
	listeners := b.sessionChanged
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (b *Bus) PublishSessionExpired(e SessionExpired) {
	b.mu.RLock()
	listeners := b.sessionExpired
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (b *Bus) PublishLoginRequired(e LoginRequired) {
	b.mu.RLock()
	listeners := b.loginRequired
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (b *Bus) PublishLogoutCompleted(e LogoutCompleted) {
	b.mu.RLock()
	listeners := b.logoutCompleted
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (b *Bus) PublishFetchProgress(e FetchProgress) {
	b.mu.RLock()
	listeners := b.fetchProgress
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (b *Bus) PublishFetchError(e FetchError) {
	b.mu.RLock()
	listeners := b.fetchError
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (b *Bus) PublishStatus(e Status) {
	b.mu.RLock()
	listeners := b.status
	b.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}
