package quotationsrv_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam/org"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/ptrx"
	"github.com/garagelink/drivescan/pkg/quotation"
	"github.com/garagelink/drivescan/pkg/quotation/quotationsrv"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

type memQuoteRepo struct {
	quotes map[string]quotation.Quotation
}

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{quotes: make(map[string]quotation.Quotation)}
}

func (r *memQuoteRepo) Create(ctx context.Context, q quotation.Quotation) error {
	r.quotes[q.ID] = q
	return nil
}

func (r *memQuoteRepo) FindByID(ctx context.Context, id string) (*quotation.Quotation, error) {
	q, ok := r.quotes[id]
	if !ok {
		return nil, quotation.ErrRegistry.New(quotation.CodeNotFound)
	}
	return &q, nil
}

func (r *memQuoteRepo) Update(ctx context.Context, q quotation.Quotation) error {
	if _, ok := r.quotes[q.ID]; !ok {
		return quotation.ErrRegistry.New(quotation.CodeNotFound)
	}
	r.quotes[q.ID] = q
	return nil
}

func (r *memQuoteRepo) UpdateStatus(ctx context.Context, id string, status quotation.Status) error {
	q, ok := r.quotes[id]
	if !ok {
		return quotation.ErrRegistry.New(quotation.CodeNotFound)
	}
	q.Status = status
	r.quotes[id] = q
	return nil
}

func (r *memQuoteRepo) List(ctx context.Context, filter quotation.ListFilter, opts kernel.PaginationOptions) (kernel.Paginated[quotation.Quotation], error) {
	matches := []quotation.Quotation{}
	for _, q := range r.quotes {
		if filter.OrgID != nil && (q.OrgID == nil || *q.OrgID != *filter.OrgID) {
			continue
		}
		if filter.CreatedBy != nil && q.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		matches = append(matches, q)
	}
	return kernel.NewPaginated(matches, 1, len(matches)+1, len(matches)), nil
}

type memOrgRepo struct {
	orgs map[kernel.OrgID]org.Organization
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{orgs: make(map[kernel.OrgID]org.Organization)}
}

func (r *memOrgRepo) Create(ctx context.Context, o org.Organization) error {
	r.orgs[o.ID] = o
	return nil
}

func (r *memOrgRepo) FindByID(ctx context.Context, id kernel.OrgID) (*org.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, errx.New("organization not found", errx.TypeNotFound)
	}
	return &o, nil
}

func (r *memOrgRepo) Update(ctx context.Context, o org.Organization) error {
	r.orgs[o.ID] = o
	return nil
}

func (r *memOrgRepo) UpdateSettings(ctx context.Context, id kernel.OrgID, settings org.Settings) error {
	o, ok := r.orgs[id]
	if !ok {
		return errx.New("organization not found", errx.TypeNotFound)
	}
	o.Settings = settings
	r.orgs[id] = o
	return nil
}

func (r *memOrgRepo) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[org.Organization], error) {
	all := []org.Organization{}
	for _, o := range r.orgs {
		all = append(all, o)
	}
	return kernel.NewPaginated(all, 1, len(all)+1, len(all)), nil
}

type fixture struct {
	svc    *quotationsrv.QuotationService
	quotes *memQuoteRepo
	orgs   *memOrgRepo
}

func newFixture() *fixture {
	quotes := newMemQuoteRepo()
	orgs := newMemOrgRepo()
	return &fixture{
		svc:    quotationsrv.NewQuotationService(quotes, orgs),
		quotes: quotes,
		orgs:   orgs,
	}
}

func (f *fixture) addGarage(id string) org.Organization {
	o := org.Organization{
		ID:       kernel.NewOrgID(id),
		Type:     kernel.OrgTypeGarage,
		Name:     "Test Garage",
		Country:  "KE",
		Currency: kernel.CurrencyKES,
		Settings: org.Settings{
			LaborRatePerHour: dec("1500"),
			TaxPct:           dec("16"),
			DefaultMarkupPct: dec("10"),
		},
		Plan:     "starter",
		IsActive: true,
	}
	f.orgs.orgs[o.ID] = o
	return o
}

func garageActor(userID, orgID string, role kernel.Role) *kernel.Actor {
	return &kernel.Actor{
		UserID:  kernel.NewUserID(userID),
		Email:   userID + "@example.com",
		Name:    userID,
		Role:    role,
		OrgID:   kernel.NewOrgID(orgID),
		OrgType: kernel.OrgTypeGarage,
	}
}

func individualActor(userID string) *kernel.Actor {
	return &kernel.Actor{
		UserID: kernel.NewUserID(userID),
		Email:  userID + "@example.com",
		Name:   userID,
		Role:   kernel.RoleIndividual,
	}
}

func baseRequest() quotationsrv.CreateRequest {
	return quotationsrv.CreateRequest{
		CustomerName:  "John Mwangi",
		CustomerPhone: ptrx.String("+254700000000"),
		Vehicle:       quotation.Vehicle{Make: "VW", Model: "Golf", Year: 2015},
		Labor:         quotationsrv.LaborInput{Hours: dec("2")},
		Parts: []quotationsrv.PartInput{
			{Name: "Ignition coil", UnitPrice: dec("5000"), Qty: 1},
			{Name: "Spark plug", UnitPrice: dec("3000"), Qty: 2},
		},
	}
}

func TestCreateDefaultsFromOrgSettings(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	actor := garageActor("u1", "org-1", kernel.RoleGarageUser)

	q, err := f.svc.Create(context.Background(), actor, baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if q.Status != quotation.StatusDraft {
		t.Fatalf("expected draft status, got %s", q.Status)
	}
	if q.Currency != kernel.CurrencyKES {
		t.Fatalf("expected org currency KES, got %s", q.Currency)
	}
	if !q.Labor.RatePerHour.Equal(dec("1500")) {
		t.Fatalf("expected org labor rate 1500, got %s", q.Labor.RatePerHour)
	}
	if !q.TaxPct.Equal(dec("16")) || !q.MarkupPct.Equal(dec("10")) {
		t.Fatalf("expected org tax/markup defaults, got %s/%s", q.TaxPct, q.MarkupPct)
	}
	if !q.Totals.Grand.Equal(dec("17864")) {
		t.Fatalf("expected grand total 17864, got %s", q.Totals.Grand)
	}
}

func TestCreateExplicitValuesOverrideDefaults(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	actor := garageActor("u1", "org-1", kernel.RoleGarageUser)

	req := baseRequest()
	req.Currency = ptrx.To(kernel.CurrencyUSD)
	req.Labor.RatePerHour = ptrx.To(dec("2000"))
	req.TaxPct = ptrx.To(dec("0"))
	req.MarkupPct = ptrx.To(dec("0"))

	q, err := f.svc.Create(context.Background(), actor, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if q.Currency != kernel.CurrencyUSD {
		t.Fatalf("expected explicit currency USD, got %s", q.Currency)
	}
	if !q.Labor.RatePerHour.Equal(dec("2000")) {
		t.Fatalf("expected explicit labor rate 2000, got %s", q.Labor.RatePerHour)
	}
	// 11000 parts + 4000 labor, no markup, no tax.
	if !q.Totals.Grand.Equal(dec("15000")) {
		t.Fatalf("expected grand total 15000, got %s", q.Totals.Grand)
	}
}

func TestCreateForIndividualHasNoOrgDefaults(t *testing.T) {
	f := newFixture()
	actor := individualActor("u1")

	req := baseRequest()
	req.Labor.RatePerHour = ptrx.To(dec("1000"))

	q, err := f.svc.Create(context.Background(), actor, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if q.OrgID != nil {
		t.Fatalf("expected no org reference, got %v", *q.OrgID)
	}
	if q.Currency != kernel.CurrencyUSD {
		t.Fatalf("expected fallback currency USD, got %s", q.Currency)
	}
	if !q.TaxPct.IsZero() || !q.MarkupPct.IsZero() {
		t.Fatalf("expected zero tax/markup without org, got %s/%s", q.TaxPct, q.MarkupPct)
	}
}

func TestCreateRejectsOutOfRangePercentages(t *testing.T) {
	f := newFixture()
	actor := individualActor("u1")

	req := baseRequest()
	req.TaxPct = ptrx.To(dec("101"))

	_, err := f.svc.Create(context.Background(), actor, req)
	if err == nil {
		t.Fatal("expected error for tax above 100")
	}
	e, ok := errx.As(err)
	if !ok || e.Type != errx.TypeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRejectsOutOfRangePercentages(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	actor := garageActor("u1", "org-1", kernel.RoleGarageUser)

	q, err := f.svc.Create(context.Background(), actor, baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name string
		mod  func(*quotationsrv.CreateRequest)
	}{
		{"tax above 100", func(r *quotationsrv.CreateRequest) { r.TaxPct = ptrx.To(dec("500")) }},
		{"negative markup", func(r *quotationsrv.CreateRequest) { r.MarkupPct = ptrx.To(dec("-1")) }},
	}
	for _, tc := range cases {
		req := baseRequest()
		tc.mod(&req)

		_, err := f.svc.Update(context.Background(), actor, q.ID, req)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		e, ok := errx.As(err)
		if !ok || e.Type != errx.TypeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// The stored draft keeps its original percentages.
	stored, err := f.svc.Get(context.Background(), actor, q.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !stored.TaxPct.Equal(dec("16")) || !stored.MarkupPct.Equal(dec("10")) {
		t.Fatalf("expected stored percentages unchanged, got %s/%s", stored.TaxPct, stored.MarkupPct)
	}
}

func TestUpdateRejectsInvalidCurrency(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	actor := garageActor("u1", "org-1", kernel.RoleGarageUser)

	q, err := f.svc.Create(context.Background(), actor, baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := baseRequest()
	req.Currency = ptrx.To(kernel.Currency("EUR"))

	_, err = f.svc.Update(context.Background(), actor, q.ID, req)
	if err == nil {
		t.Fatal("expected error for unsupported currency")
	}
	e, ok := errx.As(err)
	if !ok || e.Type != errx.TypeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRejectsNonDraft(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	actor := garageActor("u1", "org-1", kernel.RoleGarageUser)

	q, err := f.svc.Create(context.Background(), actor, baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), actor, q.ID, quotation.StatusSent); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, err = f.svc.Update(context.Background(), actor, q.ID, baseRequest())
	if err == nil {
		t.Fatal("expected error updating a sent quotation")
	}
	e, ok := errx.As(err)
	if !ok || e.Code != quotation.CodeNotEditable.Code {
		t.Fatalf("expected %s, got %v", quotation.CodeNotEditable.Code, err)
	}
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	actor := garageActor("u1", "org-1", kernel.RoleGarageUser)

	q, err := f.svc.Create(context.Background(), actor, baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.UpdateStatus(context.Background(), actor, q.ID, quotation.StatusApproved)
	if err == nil {
		t.Fatal("expected error for draft -> approved")
	}
	e, ok := errx.As(err)
	if !ok || e.Code != quotation.CodeInvalidTransition.Code {
		t.Fatalf("expected %s, got %v", quotation.CodeInvalidTransition.Code, err)
	}
}

func TestGetScopingWithinOrg(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	creator := garageActor("u1", "org-1", kernel.RoleGarageUser)

	q, err := f.svc.Create(context.Background(), creator, baseRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A plain user in the same org cannot read someone else's quotation.
	other := garageActor("u2", "org-1", kernel.RoleGarageUser)
	if _, err := f.svc.Get(context.Background(), other, q.ID); err == nil {
		t.Fatal("expected access denial for sibling user")
	}

	// The org admin can.
	admin := garageActor("u3", "org-1", kernel.RoleGarageAdmin)
	if _, err := f.svc.Get(context.Background(), admin, q.ID); err != nil {
		t.Fatalf("expected admin access, got %v", err)
	}

	// An outsider cannot.
	outsider := individualActor("u4")
	if _, err := f.svc.Get(context.Background(), outsider, q.ID); err == nil {
		t.Fatal("expected access denial for outsider")
	}
}

func TestListScopesToCreatorForPlainUsers(t *testing.T) {
	f := newFixture()
	f.addGarage("org-1")
	creator := garageActor("u1", "org-1", kernel.RoleGarageUser)
	sibling := garageActor("u2", "org-1", kernel.RoleGarageUser)
	admin := garageActor("u3", "org-1", kernel.RoleGarageAdmin)

	if _, err := f.svc.Create(context.Background(), creator, baseRequest()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, err := f.svc.List(context.Background(), creator, nil, kernel.PaginationOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine.Items) != 1 {
		t.Fatalf("expected creator to see 1 quotation, got %d", len(mine.Items))
	}

	theirs, err := f.svc.List(context.Background(), sibling, nil, kernel.PaginationOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(theirs.Items) != 0 {
		t.Fatalf("expected sibling user to see 0 quotations, got %d", len(theirs.Items))
	}

	all, err := f.svc.List(context.Background(), admin, nil, kernel.PaginationOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all.Items) != 1 {
		t.Fatalf("expected admin to see the tenant's quotation, got %d", len(all.Items))
	}
}
