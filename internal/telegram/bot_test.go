package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/metrics"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shared"
	"macro-meal-planner/internal/shopping"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fileURL string
}

func (f *fakeAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no file")
	}
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

type memoryPlans struct {
	saved map[string]*planner.Plan
}

func (m *memoryPlans) Save(ctx context.Context, userID string, plan *planner.Plan) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string]*planner.Plan)
	}
	m.saved[userID] = plan
	return "plan-" + userID, nil
}

func (m *memoryPlans) Latest(ctx context.Context, userID string) (*planner.StoredPlan, error) {
	p, ok := m.saved[userID]
	if !ok {
		return nil, planner.ErrPlanNotFound
	}
	return &planner.StoredPlan{ID: "plan-" + userID, UserID: userID, Plan: *p, CreatedAt: time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)}, nil
}

type memoryShopping struct {
	lists []*shopping.ShoppingList
}

func (m *memoryShopping) Save(ctx context.Context, list *shopping.ShoppingList) (int64, error) {
	m.lists = append(m.lists, list)
	return int64(len(m.lists)), nil
}

type memoryMetrics struct {
	mu    sync.Mutex
	metas []shared.AgentMeta
}

func (m *memoryMetrics) RecordMeta(meta shared.AgentMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas = append(m.metas, meta)
	return nil
}

func (m *memoryMetrics) GetDailyUsage(days int) ([]metrics.DailyUsage, error) {
	return []metrics.DailyUsage{{Date: "2026-01-02", TotalPrompt: 100, TotalCompletion: 20, TotalExecution: 3, AvgLatencyMS: 12}}, nil
}

type fakeAnalyzer struct {
	got []byte
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image []byte) (*analysis.Result, error) {
	f.got = image
	return &analysis.Result{
		Ingredients:     []analysis.Ingredient{{Name: "Rice", Amount: 100, Unit: "g", Possibility: 90}},
		CaloriesPer100g: 130,
	}, nil
}

func testPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	c, err := catalog.New([]catalog.DishRow{
		{ID: "oats", Name: "Oat_bowl", TotalCalories: 400, TotalFat: 10, TotalCarb: 60, TotalProtein: 20, TotalMass: 300},
		{ID: "chicken", Name: "Chicken rice", TotalCalories: 700, TotalFat: 20, TotalCarb: 80, TotalProtein: 50, TotalMass: 450},
		{ID: "salmon", Name: "Salmon", TotalCalories: 600, TotalFat: 30, TotalCarb: 30, TotalProtein: 45, TotalMass: 350},
	}, []catalog.IngredientLink{
		{DishID: "oats", Name: "oats"},
		{DishID: "chicken", Name: "rice"},
		{DishID: "salmon", Name: "Rice", Position: 1},
		{DishID: "salmon", Name: "salmon"},
	})
	require.NoError(t, err)
	return planner.NewPlanner(c, nil)
}

func newTestBot(t *testing.T, api *fakeAPI, deps Deps) *Bot {
	t.Helper()
	cfg := &config.Config{TelegramAllowedUserIDs: []int64{42}, AdminTelegramID: 7}
	if deps.Planner == nil {
		deps.Planner = testPlanner(t)
	}
	return newBot(api, cfg, deps)
}

func postUpdate(t *testing.T, b *Bot, userID int64, text string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID},
			Chat:      &tgbotapi.Chat{ID: userID},
			Text:      text,
		},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	b.HandleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(body))))
	b.Wait()
	return rec
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/Plan@macro_bot 2000  3")
	assert.Equal(t, "plan", cmd)
	assert.Equal(t, []string{"2000", "3"}, args)

	cmd, args = parseCommand("hello there")
	assert.Empty(t, cmd)
	assert.Nil(t, args)
}

func TestParsePlanArgs(t *testing.T) {
	req, err := parsePlanArgs([]string{"2000"})
	require.NoError(t, err)
	assert.Equal(t, planner.Request{DailyCalories: 2000, NumMeals: defaultMeals}, req)

	req, err = parsePlanArgs([]string{"1800", "2", "0.4,0.6"})
	require.NoError(t, err)
	assert.Equal(t, 2, req.NumMeals)
	assert.Equal(t, []float64{0.4, 0.6}, req.CalorieRatios)

	for _, args := range [][]string{nil, {"lots"}, {"2000", "x"}, {"2000", "2", "0.4,y"}, {"1", "2", "3", "4"}} {
		_, err := parsePlanArgs(args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestHandleWebhook_Plan(t *testing.T) {
	api := &fakeAPI{}
	plans := &memoryPlans{}
	lists := &memoryShopping{}
	recorder := &memoryMetrics{}
	b := newTestBot(t, api, Deps{Plans: plans, Shopping: lists, Metrics: recorder})

	rec := postUpdate(t, b, 42, "/plan 1700 3")
	assert.Equal(t, http.StatusOK, rec.Code)

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "📅 *Meal Plan* (1700 kcal target)")
	assert.Contains(t, texts[0], "*Breakfast*")
	assert.Contains(t, texts[0], `Oat\_bowl`)
	assert.Contains(t, texts[0], "📊 *Daily Total*")
	assert.Contains(t, texts[1], "🛒 *Shopping List*")
	assert.Contains(t, texts[1], "• rice (x2)")

	require.Contains(t, plans.saved, "42")
	require.Len(t, lists.lists, 1)
	assert.Equal(t, "plan-42", lists.lists[0].MealPlanID)
	require.Len(t, recorder.metas, 1)
	assert.Equal(t, planner.AgentName, recorder.metas[0].AgentName)

	t.Run("Last", func(t *testing.T) {
		api.sent = nil
		postUpdate(t, b, 42, "/last")
		texts := api.texts()
		require.Len(t, texts, 2)
		assert.Contains(t, texts[0], "_Saved 2026-01-02 08:00_")
	})
}

func TestHandleWebhook_PlanErrors(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(t, api, Deps{})

	postUpdate(t, b, 42, "/plan -5")
	postUpdate(t, b, 42, "/plan 2000 5")
	postUpdate(t, b, 42, "/plan abc")

	texts := api.texts()
	require.Len(t, texts, 4, "insufficient catalog also alerts the admin")
	assert.Contains(t, texts[0], "*Invalid request:*")
	assert.Contains(t, texts[1], "only 3 of 5 meals")
	assert.Contains(t, texts[2], "*Planner Failure*")
	assert.Contains(t, texts[3], `invalid calorie target`)
}

func TestHandleWebhook_AccessControl(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(t, api, Deps{Metrics: &memoryMetrics{}})

	postUpdate(t, b, 99, "/plan 2000")
	assert.Empty(t, api.texts(), "unknown users are ignored")

	postUpdate(t, b, 42, "/metrics")
	postUpdate(t, b, 7, "/metrics")
	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Access Denied")
	assert.Contains(t, texts[1], "📊 *Usage & Health Report*")
	assert.Contains(t, texts[1], "120 tokens (3 execs, avg 12ms)")
}

func TestHandleWebhook_EmptyAllowList(t *testing.T) {
	api := &fakeAPI{}
	cfg := &config.Config{AdminTelegramID: 7}
	b := newBot(api, cfg, Deps{Planner: testPlanner(t), Metrics: &memoryMetrics{}})

	postUpdate(t, b, 42, "/plan 2000")
	assert.Empty(t, api.texts(), "only the admin is served without an allow-list")

	postUpdate(t, b, 7, "/metrics")
	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "📊 *Usage & Health Report*")
}

func TestHandleWebhook_BadBody(t *testing.T) {
	b := newTestBot(t, &fakeAPI{}, Deps{})
	rec := httptest.NewRecorder()
	b.HandleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePhoto(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer files.Close()

	api := &fakeAPI{fileURL: files.URL}
	analyzer := &fakeAnalyzer{}
	b := newTestBot(t, api, Deps{Analyzer: analyzer})

	msg := &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 42},
		Chat:  &tgbotapi.Chat{ID: 42},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}
	b.processMessage(context.Background(), msg)

	assert.Equal(t, []byte("jpeg-bytes"), analyzer.got)
	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Analyzing")
	assert.Contains(t, texts[1], "• Rice: 100.0 g (90.0%)")
	assert.Contains(t, texts[1], "• Calories: 130.00 kcal")

	t.Run("Disabled", func(t *testing.T) {
		api := &fakeAPI{}
		newTestBot(t, api, Deps{}).processMessage(context.Background(), msg)
		assert.Equal(t, []string{"📷 Photo analysis is not enabled."}, api.texts())
	})
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\`+"`"+`d\[e`, escapeMarkdown("a_b*c`d[e"))
}
