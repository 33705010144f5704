package game

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- TickerCreator ---

type MockTickerCreator struct {
	mock.Mock
}

func (m *MockTickerCreator) Create(d time.Duration) (<-chan time.Time, func()) {
	args := m.Called(d)
	return args.Get(0).(chan time.Time), args.Get(1).(func())
}
