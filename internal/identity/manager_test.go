package identity

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"
)

// --- Mock store ---

type mockStore struct {
	mu   sync.Mutex
	data map[string]string

	getAllCalls int
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) SetProfileKey(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) GetAllProfileKeys() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllCalls++
	cp := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	return cp, nil
}

func (m *mockStore) DeleteProfileKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Tests ---

func TestGet_EmptyStoreReturnsDefault(t *testing.T) {
	mgr := NewManager(newMockStore())

	id, err := mgr.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(id, Default()) {
		t.Errorf("Get() = %+v, want default %+v", id, Default())
	}
}

func TestDescriptions(t *testing.T) {
	id := Default()
	if got := id.PersonaDescription(); got != "学生" {
		t.Errorf("PersonaDescription() = %q, want %q", got, "学生")
	}
	if got := id.TabooDescription(); got != "无" {
		t.Errorf("TabooDescription() = %q, want %q", got, "无")
	}

	id.Persona = CustomPersona
	if got := id.PersonaDescription(); got != "自定义" {
		t.Errorf("empty custom PersonaDescription() = %q, want %q", got, "自定义")
	}
	id.CustomPersona = "健身教练"
	if got := id.PersonaDescription(); got != "健身教练" {
		t.Errorf("PersonaDescription() = %q, want %q", got, "健身教练")
	}

	id.TabooList = []string{"前任", "收入"}
	if got := id.TabooDescription(); got != "前任、收入" {
		t.Errorf("TabooDescription() = %q, want %q", got, "前任、收入")
	}
}

func TestSaveAndGet(t *testing.T) {
	mgr := NewManager(newMockStore())
	want := UserIdentity{
		DisplayName:      "小林",
		Gender:           Female,
		RelationshipGoal: Dating,
		Persona:          Engineer,
		SpeakingStyle:    EmojiLover,
		TabooList:        []string{"年龄"},
		Language:         Mixed,
	}
	if err := mgr.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := mgr.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestSetField_AcceptsTokenAndDisplayValue(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	if err := mgr.SetField(KeyGender, "女"); err != nil {
		t.Fatalf("SetField display value: %v", err)
	}
	if err := mgr.SetField(KeyLanguage, "english"); err != nil {
		t.Fatalf("SetField token: %v", err)
	}
	if err := mgr.SetField(KeyTabooList, "前任, 工资、体重"); err != nil {
		t.Fatalf("SetField taboo: %v", err)
	}

	if store.data[KeyGender] != "female" {
		t.Errorf("stored gender = %q, want token %q", store.data[KeyGender], "female")
	}

	id, _ := mgr.Get()
	if id.Gender != Female || id.Language != English {
		t.Errorf("Get() gender=%v language=%v, want 女/英文", id.Gender, id.Language)
	}
	if want := []string{"前任", "工资", "体重"}; !reflect.DeepEqual(id.TabooList, want) {
		t.Errorf("TabooList = %v, want %v", id.TabooList, want)
	}
}

func TestSetField_Rejects(t *testing.T) {
	mgr := NewManager(newMockStore())
	tests := []struct{ key, value string }{
		{KeyGender, "robot"},
		{KeyPersona, "astronaut"},
		{"identity.unknown", "x"},
		{KeyTabooList, "[1, 2"},
	}
	for _, tt := range tests {
		if err := mgr.SetField(tt.key, tt.value); err == nil {
			t.Errorf("SetField(%q, %q) succeeded, want error", tt.key, tt.value)
		}
	}
}

func TestSetFields_AllOrNothing(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	err := mgr.SetFields(map[string]string{
		KeyDisplayName: "小美",
		KeyGender:      "robot",
	})
	if err == nil {
		t.Fatal("SetFields with a bad gender succeeded")
	}
	if store.has(KeyDisplayName) {
		t.Errorf("display name stored despite rejected batch: %q", store.data[KeyDisplayName])
	}

	if err := mgr.SetFields(map[string]string{KeyDisplayName: "小美", KeyGender: "女"}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	id, _ := mgr.Get()
	if id.DisplayName != "小美" || id.Gender != Female {
		t.Errorf("Get() = %q/%v, want 小美/女", id.DisplayName, id.Gender)
	}
}

func TestGet_MalformedKeyDeletedAndDefaulted(t *testing.T) {
	store := newMockStore()
	store.data[KeyPersona] = "astronaut"
	store.data[KeySpeakingStyle] = "outgoing"
	mgr := NewManager(store)

	id, err := mgr.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if id.Persona != Student {
		t.Errorf("Persona = %v, want default %v", id.Persona, Student)
	}
	if id.SpeakingStyle != Outgoing {
		t.Errorf("SpeakingStyle = %v, want %v", id.SpeakingStyle, Outgoing)
	}
	if store.has(KeyPersona) {
		t.Error("malformed persona key still stored")
	}
	if !store.has(KeySpeakingStyle) {
		t.Error("valid speaking style key was deleted")
	}
}

func TestGet_CacheTTL(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Now()}
	mgr := NewManagerWithClock(store, clock, time.Minute)

	mgr.Get()
	mgr.Get()
	if store.getAllCalls != 1 {
		t.Errorf("getAllCalls = %d, want 1 within TTL", store.getAllCalls)
	}

	clock.Advance(2 * time.Minute)
	mgr.Get()
	if store.getAllCalls != 2 {
		t.Errorf("getAllCalls = %d, want 2 after TTL", store.getAllCalls)
	}

	mgr.SetField(KeyDisplayName, "阿杰")
	id, _ := mgr.Get()
	if id.DisplayName != "阿杰" {
		t.Errorf("DisplayName = %q after SetField, want %q", id.DisplayName, "阿杰")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	mgr := NewManager(newMockStore())
	mgr.SetField(KeyTabooList, `["前任"]`)

	id, _ := mgr.Get()
	id.TabooList[0] = "mutated"

	again, _ := mgr.Get()
	if again.TabooList[0] != "前任" {
		t.Errorf("cached taboo list mutated: %v", again.TabooList)
	}
}

func TestReset(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)
	mgr.SetField(KeyDisplayName, "小林")
	if err := mgr.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if store.has(KeyDisplayName) {
		t.Error("display name still stored after Reset")
	}
}

func TestJSONUsesTokens(t *testing.T) {
	b, err := json.Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	json.Unmarshal(b, &raw)
	if raw["gender"] != "unspecified" || raw["persona"] != "student" {
		t.Errorf("json = %s, want token enums", b)
	}

	var id UserIdentity
	if err := json.Unmarshal([]byte(`{"gender":"男","persona":"boss","language":"中英混"}`), &id); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if id.Gender != Male || id.Persona != Boss || id.Language != Mixed {
		t.Errorf("Unmarshal = %+v", id)
	}
}
