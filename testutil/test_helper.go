/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 内存数据库只允许单连接，保证同一测试内所有查询看到同一个库
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"integrity-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// :memory: 每个连接是独立的库
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql db: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移所有模型
	all := append(models.BusinessModels(), models.IntegrityModels()...)
	if err := db.AutoMigrate(all...); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"ticket_sales",
		"ticket_platforms",
		"event_spots",
		"applications",
		"profiles",
		"events",
		"data_integrity_checks",
		"integrity_corrections",
		"data_backups",
		"data_operations_log",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// EventOption 活动选项函数类型
type EventOption func(*models.Event)

// CreateEvent 创建测试活动，默认汇总值为 0
func (f *TestDataFactory) CreateEvent(opts ...EventOption) *models.Event {
	event := &models.Event{
		ID:        generateID("evt"),
		Name:      "测试活动",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(event)
	}

	if err := f.DB.Create(event).Error; err != nil {
		panic(fmt.Sprintf("failed to create test event: %v", err))
	}
	return event
}

// WithEventID 指定活动ID
func WithEventID(id string) EventOption {
	return func(e *models.Event) { e.ID = id }
}

// WithEventTotals 指定活动存储的汇总值
func WithEventTotals(tickets int64, revenue float64) EventOption {
	return func(e *models.Event) {
		e.TotalTicketsSold = tickets
		e.TotalGrossSales = revenue
	}
}

// TicketSaleOption 售票记录选项函数类型
type TicketSaleOption func(*models.TicketSale)

// CreateTicketSale 创建测试售票记录
func (f *TestDataFactory) CreateTicketSale(eventID string, opts ...TicketSaleOption) *models.TicketSale {
	sale := &models.TicketSale{
		ID:              generateID("ts"),
		EventID:         eventID,
		Platform:        "humanitix",
		PlatformOrderID: generateID("order"),
		CustomerName:    "测试顾客",
		CustomerEmail:   "customer_" + generateSuffix() + "@example.com",
		TicketQuantity:  1,
		TotalAmount:     10,
		PurchaseDate:    time.Now(),
		CreatedAt:       time.Now(),
	}

	for _, opt := range opts {
		opt(sale)
	}

	if err := f.DB.Create(sale).Error; err != nil {
		panic(fmt.Sprintf("failed to create test ticket sale: %v", err))
	}
	return sale
}

// WithSaleAmount 指定票数和金额
func WithSaleAmount(quantity int64, amount float64) TicketSaleOption {
	return func(s *models.TicketSale) {
		s.TicketQuantity = quantity
		s.TotalAmount = amount
	}
}

// WithCustomer 指定顾客信息
func WithCustomer(name, email string) TicketSaleOption {
	return func(s *models.TicketSale) {
		s.CustomerName = name
		s.CustomerEmail = email
	}
}

// WithPurchaseDate 指定购买时间
func WithPurchaseDate(at time.Time) TicketSaleOption {
	return func(s *models.TicketSale) { s.PurchaseDate = at }
}

// WithPlatformOrder 指定平台和平台订单号
func WithPlatformOrder(platform, orderID string) TicketSaleOption {
	return func(s *models.TicketSale) {
		s.Platform = platform
		s.PlatformOrderID = orderID
	}
}

// TicketPlatformOption 平台汇总选项函数类型
type TicketPlatformOption func(*models.TicketPlatform)

// CreateTicketPlatform 创建测试平台汇总
func (f *TestDataFactory) CreateTicketPlatform(eventID, platform string, opts ...TicketPlatformOption) *models.TicketPlatform {
	tp := &models.TicketPlatform{
		ID:        generateID("tp"),
		EventID:   eventID,
		Platform:  platform,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(tp)
	}

	if err := f.DB.Create(tp).Error; err != nil {
		panic(fmt.Sprintf("failed to create test ticket platform: %v", err))
	}
	return tp
}

// WithPlatformTotals 指定平台存储的汇总值
func WithPlatformTotals(tickets int64, revenue float64) TicketPlatformOption {
	return func(tp *models.TicketPlatform) {
		tp.TicketsSold = tickets
		tp.GrossSales = revenue
	}
}

// CreateProfile 创建测试演员档案
func (f *TestDataFactory) CreateProfile() *models.Profile {
	profile := &models.Profile{
		ID:        generateID("prof"),
		Name:      "测试演员",
		Email:     "comedian_" + generateSuffix() + "@example.com",
		CreatedAt: time.Now(),
	}
	if err := f.DB.Create(profile).Error; err != nil {
		panic(fmt.Sprintf("failed to create test profile: %v", err))
	}
	return profile
}

// CreateApplication 创建测试演出申请
func (f *TestDataFactory) CreateApplication(eventID, comedianID string) *models.Application {
	app := &models.Application{
		ID:         generateID("app"),
		EventID:    eventID,
		ComedianID: comedianID,
		Status:     "pending",
		CreatedAt:  time.Now(),
	}
	if err := f.DB.Create(app).Error; err != nil {
		panic(fmt.Sprintf("failed to create test application: %v", err))
	}
	return app
}

// CreateEventSpot 创建测试演出档位
func (f *TestDataFactory) CreateEventSpot(eventID string) *models.EventSpot {
	spot := &models.EventSpot{
		ID:        generateID("spot"),
		EventID:   eventID,
		SpotName:  "开场",
		CreatedAt: time.Now(),
	}
	if err := f.DB.Create(spot).Error; err != nil {
		panic(fmt.Sprintf("failed to create test event spot: %v", err))
	}
	return spot
}

var idSeq int64

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", atomic.AddInt64(&idSeq, 1))
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// DecodeResponse 解析统一响应结构中的 data 字段
func (h *HTTPTestHelper) DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) (status int, msg string) {
	var envelope struct {
		Status int             `json:"status"`
		Msg    string          `json:"msg"`
		Data   json.RawMessage `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &envelope)
	assert.NoError(t, err)

	if data != nil && len(envelope.Data) > 0 {
		assert.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Status, envelope.Msg
}
