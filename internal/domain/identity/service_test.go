package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mednow/mednow/internal/platform/auth"
)

// -- Mock repository --

type mockRepo struct {
	users    map[uuid.UUID]*User
	profiles map[uuid.UUID]*Profile
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:    make(map[uuid.UUID]*User),
		profiles: make(map[uuid.UUID]*Profile),
	}
}

func (m *mockRepo) CreateUser(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetUserByCPF(_ context.Context, cpf string) (*User, error) {
	for _, u := range m.users {
		if u.CPF == cpf {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) SetDeviceToken(_ context.Context, userID uuid.UUID, token string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.DeviceToken = &token
	return nil
}

func (m *mockRepo) CreateProfile(_ context.Context, p *Profile) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.profiles[p.ID] = p
	return nil
}

func (m *mockRepo) GetProfile(_ context.Context, id uuid.UUID) (*Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) ProfilesByUser(_ context.Context, userID uuid.UUID) ([]*Profile, error) {
	var result []*Profile
	for _, p := range m.profiles {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockRepo) SetProfileApproval(_ context.Context, id uuid.UUID, approved bool) error {
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Approved = approved
	p.PendingApproval = false
	return nil
}

func (m *mockRepo) ListProfiles(_ context.Context, pending bool) ([]*ProfileSummary, error) {
	var result []*ProfileSummary
	for _, p := range m.profiles {
		if p.PendingApproval != pending {
			continue
		}
		if !pending && !p.Approved {
			continue
		}
		u := m.users[p.UserID]
		result = append(result, &ProfileSummary{Profile: *p, UserName: u.Name, UserCPF: u.CPF})
	}
	return result, nil
}

func (m *mockRepo) SearchPatients(_ context.Context, term string, limit, offset int) ([]*PatientSummary, int, error) {
	var result []*PatientSummary
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(term)) || strings.Contains(u.CPF, term) {
			result = append(result, &PatientSummary{ID: u.ID, Name: u.Name, CPF: u.CPF})
		}
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// -- Helpers --

const (
	testCPF      = "529.982.247-25"
	otherCPF     = "111.444.777-35"
	testPassword = "s3nha-forte"
)

func testService() (*Service, *mockRepo) {
	repo := newMockRepo()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(repo, issuer), repo
}

func patientInput() RegisterInput {
	return RegisterInput{
		Name:     "Maria Silva",
		CPF:      testCPF,
		Email:    "maria@example.com",
		Password: testPassword,
		Role:     auth.RolePatient,
	}
}

// -- Tests --

func TestRegister_NewPatientAutoApproved(t *testing.T) {
	svc, repo := testService()

	user, profile, err := svc.Register(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.CPF != "52998224725" {
		t.Errorf("cpf not normalized: %q", user.CPF)
	}
	if user.PasswordHash == testPassword || user.PasswordHash == "" {
		t.Error("password stored unhashed")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(testPassword)) != nil {
		t.Error("stored hash does not match the password")
	}
	if !profile.Approved || profile.PendingApproval {
		t.Errorf("patient profile should be auto-approved: %+v", profile)
	}
	if len(repo.profiles) != 1 {
		t.Errorf("profiles stored = %d, want 1", len(repo.profiles))
	}
}

func TestRegister_PhysicianPendsApproval(t *testing.T) {
	svc, _ := testService()

	in := patientInput()
	in.Role = auth.RolePhysician
	in.CRM = "123456-SP"

	_, profile, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if profile.Approved || !profile.PendingApproval {
		t.Errorf("physician profile must await approval: %+v", profile)
	}
	if profile.CRM == nil || *profile.CRM != "123456-SP" {
		t.Errorf("crm not stored: %+v", profile)
	}
}

func TestRegister_ExistingCPFGainsProfileOnly(t *testing.T) {
	svc, repo := testService()

	first, _, err := svc.Register(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}

	// Same CPF, different role, different personal data: the account
	// keeps its original identity and only gains the profile.
	in := RegisterInput{
		Name:     "Outro Nome",
		CPF:      testCPF,
		Password: "outra-senha",
		Role:     auth.RolePharmacist,
		CRF:      "4321-RJ",
	}
	second, profile, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same account")
	}
	if second.Name != "Maria Silva" {
		t.Errorf("name overwritten: %q", second.Name)
	}
	if bcrypt.CompareHashAndPassword([]byte(second.PasswordHash), []byte(testPassword)) != nil {
		t.Error("password overwritten")
	}
	if profile.Role != auth.RolePharmacist {
		t.Errorf("role = %q", profile.Role)
	}
	if len(repo.profiles) != 2 {
		t.Errorf("profiles stored = %d, want 2", len(repo.profiles))
	}
}

func TestRegister_DuplicateRoleRejected(t *testing.T) {
	svc, _ := testService()

	if _, _, err := svc.Register(context.Background(), patientInput()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, _, err := svc.Register(context.Background(), patientInput())
	if err != ErrProfileExists {
		t.Fatalf("err = %v, want ErrProfileExists", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := testService()

	cases := map[string]func(*RegisterInput){
		"bad cpf":          func(in *RegisterInput) { in.CPF = "123" },
		"bad role":         func(in *RegisterInput) { in.Role = "nurse" },
		"missing password": func(in *RegisterInput) { in.Password = "" },
		"missing name":     func(in *RegisterInput) { in.Name = "" },
		"physician without crm": func(in *RegisterInput) {
			in.Role = auth.RolePhysician
			in.CRM = ""
		},
		"pharmacist with bad crf": func(in *RegisterInput) {
			in.Role = auth.RolePharmacist
			in.CRF = "12-XY"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := patientInput()
			mutate(&in)
			if _, _, err := svc.Register(context.Background(), in); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := testService()
	if _, _, err := svc.Register(context.Background(), patientInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, user, roles, err := svc.Login(context.Background(), testCPF, testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}
	if user.Name != "Maria Silva" {
		t.Errorf("user = %+v", user)
	}
	if len(roles) != 1 || roles[0] != auth.RolePatient {
		t.Errorf("roles = %v", roles)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := testService()
	if _, _, err := svc.Register(context.Background(), patientInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, _, err := svc.Login(context.Background(), testCPF, "errada"); err != ErrInvalidCredentials {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, _, err := svc.Login(context.Background(), otherCPF, testPassword); err != ErrInvalidCredentials {
		t.Fatalf("unknown cpf: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_PendingOnlyProfileRejected(t *testing.T) {
	svc, _ := testService()

	in := patientInput()
	in.Role = auth.RolePhysician
	in.CRM = "123456-SP"
	if _, _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, _, err := svc.Login(context.Background(), testCPF, testPassword); err != ErrNoApprovedRole {
		t.Fatalf("err = %v, want ErrNoApprovedRole", err)
	}
}

func TestLookupCPF(t *testing.T) {
	svc, _ := testService()

	exists, _, err := svc.LookupCPF(context.Background(), testCPF)
	if err != nil || exists {
		t.Fatalf("unknown cpf: exists=%v err=%v", exists, err)
	}

	if _, _, err := svc.Register(context.Background(), patientInput()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	exists, profiles, err := svc.LookupCPF(context.Background(), testCPF)
	if err != nil {
		t.Fatalf("LookupCPF: %v", err)
	}
	if !exists || len(profiles) != 1 {
		t.Errorf("exists=%v profiles=%v", exists, profiles)
	}
}

func TestApprovalFlow(t *testing.T) {
	svc, repo := testService()

	in := patientInput()
	in.Role = auth.RolePhysician
	in.CRM = "123456-SP"
	if _, _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("Register: %v", err)
	}

	pending, err := svc.PendingProfiles(context.Background())
	if err != nil {
		t.Fatalf("PendingProfiles: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].UserName != "Maria Silva" {
		t.Errorf("summary missing holder: %+v", pending[0])
	}

	approved, err := svc.SetApproval(context.Background(), pending[0].Profile.ID, true)
	if err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
	if !approved.Approved || approved.PendingApproval {
		t.Errorf("profile after approval: %+v", approved)
	}

	// The approved physician can now sign in.
	if _, _, roles, err := svc.Login(context.Background(), testCPF, testPassword); err != nil || len(roles) != 1 {
		t.Errorf("login after approval: roles=%v err=%v", roles, err)
	}

	if remaining, _ := svc.PendingProfiles(context.Background()); len(remaining) != 0 {
		t.Errorf("queue not drained: %d", len(remaining))
	}
	if _, ok := repo.profiles[approved.ID]; !ok {
		t.Error("profile must stay on record after the decision")
	}
}

func TestSetApproval_Reject(t *testing.T) {
	svc, _ := testService()

	in := patientInput()
	in.Role = auth.RolePharmacist
	in.CRF = "4321-RJ"
	if _, _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("Register: %v", err)
	}

	pending, _ := svc.PendingProfiles(context.Background())
	rejected, err := svc.SetApproval(context.Background(), pending[0].Profile.ID, false)
	if err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
	if rejected.Approved || rejected.PendingApproval {
		t.Errorf("profile after rejection: %+v", rejected)
	}

	if _, _, _, err := svc.Login(context.Background(), testCPF, testPassword); err != ErrNoApprovedRole {
		t.Fatalf("rejected profile must not grant login: %v", err)
	}
}

func TestRegisterDeviceToken(t *testing.T) {
	svc, repo := testService()
	user, _, err := svc.Register(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RegisterDeviceToken(context.Background(), user.ID, "fcm-token-1"); err != nil {
		t.Fatalf("RegisterDeviceToken: %v", err)
	}
	stored := repo.users[user.ID]
	if stored.DeviceToken == nil || *stored.DeviceToken != "fcm-token-1" {
		t.Errorf("token not stored: %+v", stored.DeviceToken)
	}

	if err := svc.RegisterDeviceToken(context.Background(), user.ID, ""); err == nil {
		t.Error("empty token must be rejected")
	}
	if err := svc.RegisterDeviceToken(context.Background(), uuid.New(), "tok"); err != ErrNotFound {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestSearchPatients_PageOfTen(t *testing.T) {
	svc, repo := testService()
	for i := 0; i < 12; i++ {
		u := &User{Name: "Paciente Teste", CPF: uuid.NewString()}
		if err := repo.CreateUser(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}

	page1, total, err := svc.SearchPatients(context.Background(), "Paciente", 1)
	if err != nil {
		t.Fatalf("SearchPatients: %v", err)
	}
	if total != 12 {
		t.Errorf("total = %d, want 12", total)
	}
	if len(page1) != PatientSearchPageSize {
		t.Errorf("page 1 size = %d, want %d", len(page1), PatientSearchPageSize)
	}

	page2, _, err := svc.SearchPatients(context.Background(), "Paciente", 2)
	if err != nil {
		t.Fatalf("SearchPatients page 2: %v", err)
	}
	if len(page2) != 2 {
		t.Errorf("page 2 size = %d, want 2", len(page2))
	}
}
