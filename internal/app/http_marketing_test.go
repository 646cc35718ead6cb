package app

import (
	"net/http"
	"testing"
)

type marketingFixture struct {
	handler http.Handler
	token   string
}

func newMarketingFixture(t *testing.T) marketingFixture {
	t.Helper()
	svc, _ := newTestService(t, Dependencies{})
	handler := NewHTTPServer(svc, "*").Handler()
	return marketingFixture{handler: handler, token: signIn(t, handler, adminEmail, adminPassword)}
}

func (f marketingFixture) do(t *testing.T, method, path string, body any, want int) map[string]any {
	t.Helper()
	rr := doJSON(t, f.handler, method, path, f.token, body)
	expectStatus(t, rr, want)
	if rr.Body.Len() == 0 {
		return nil
	}
	return decodeMap(t, rr)
}

func (f marketingFixture) items(t *testing.T, path string) []map[string]any {
	t.Helper()
	rr := doJSON(t, f.handler, http.MethodGet, path, f.token, nil)
	expectStatus(t, rr, http.StatusOK)
	return decodeItems(t, rr)
}

func (f marketingFixture) createCampaign(t *testing.T, name string, spent float64, areas ...string) string {
	t.Helper()
	created := f.do(t, http.MethodPost, "/api/marketing/campaigns", map[string]any{
		"name": name, "platform": "NEXTDOOR", "budget": 500, "targetArea": areas, "startDate": "2026-03-01",
	}, http.StatusCreated)
	if created["status"] != "DRAFT" {
		t.Fatalf("expected new campaign in DRAFT, got %v", created["status"])
	}
	id := created["id"].(string)
	f.do(t, http.MethodPut, "/api/marketing/campaigns/"+id, map[string]any{"spent": spent, "status": "ACTIVE"}, http.StatusOK)
	return id
}

func (f marketingFixture) createLead(t *testing.T, neighborhood, city string, extra map[string]any) string {
	t.Helper()
	body := map[string]any{"firstName": "Lead", "lastName": "Tester", "source": "NEXTDOOR", "neighborhood": neighborhood, "city": city}
	for k, v := range extra {
		body[k] = v
	}
	created := f.do(t, http.MethodPost, "/api/marketing/leads", body, http.StatusCreated)
	return created["id"].(string)
}

func TestMedlockBridgeRollupThroughAPI(t *testing.T) {
	f := newMarketingFixture(t)
	campaignID := f.createCampaign(t, "Spring Refresh", 300, "Medlock Bridge", "Seven Oaks")

	wonID := f.createLead(t, "Medlock Bridge", "Johns Creek", map[string]any{"campaignId": campaignID})
	f.createLead(t, "Medlock Bridge", "Johns Creek", map[string]any{"campaignId": campaignID})
	f.createLead(t, "Medlock Bridge", "Johns Creek", nil)

	lead := f.do(t, http.MethodPut, "/api/marketing/leads/"+wonID, map[string]any{"status": "WON", "actualValue": 10000}, http.StatusOK)
	if lead["state"] != "GA" || lead["conversionDate"] == nil {
		t.Fatalf("expected default state and conversion date, got %v", lead)
	}

	row := f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Medlock%20Bridge/Johns%20Creek", nil, http.StatusOK)
	if row["totalLeads"] != 3.0 || row["totalCampaigns"] != 1.0 || row["totalSpent"] != 300.0 || row["totalRevenue"] != 10000.0 {
		t.Fatalf("unexpected totals: %v", row)
	}
	if !approx(row["avgCostPerLead"].(float64), 100) ||
		!approx(row["conversionRate"].(float64), 100.0/3.0) ||
		!approx(row["roi"].(float64), 10000.0/300.0) {
		t.Fatalf("unexpected ratios: %v", row)
	}

	f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Medlock%20Bridge/Johns%20Creek?state=FL", nil, http.StatusNotFound)

	campaigns := f.items(t, "/api/marketing/campaigns")
	if len(campaigns) != 1 {
		t.Fatalf("expected one campaign, got %d", len(campaigns))
	}
	if campaigns[0]["leads"] != 2.0 || campaigns[0]["conversions"] != 1.0 || campaigns[0]["revenue"] != 10000.0 {
		t.Fatalf("unexpected campaign counters: %v", campaigns[0])
	}

	stats := f.do(t, http.MethodGet, "/api/marketing/stats", nil, http.StatusOK)
	if stats["activeCampaigns"] != 1.0 || stats["totalLeads"] != 2.0 || !approx(stats["roi"].(float64), 10000.0/300.0) {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestNeighborhoodListSortedByROI(t *testing.T) {
	f := newMarketingFixture(t)
	f.createCampaign(t, "Windward Search", 200, "Windward")
	f.createCampaign(t, "Medlock Mailers", 100, "Medlock Bridge")

	windward := f.createLead(t, "Windward", "Alpharetta", nil)
	medlock := f.createLead(t, "Medlock Bridge", "Johns Creek", nil)
	f.createLead(t, "Seven Oaks", "Johns Creek", nil)
	f.do(t, http.MethodPut, "/api/marketing/leads/"+windward, map[string]any{"status": "WON", "actualValue": 1000}, http.StatusOK)
	f.do(t, http.MethodPut, "/api/marketing/leads/"+medlock, map[string]any{"status": "WON", "actualValue": 1000}, http.StatusOK)

	rows := f.items(t, "/api/marketing/neighborhoods")
	if len(rows) != 3 {
		t.Fatalf("expected three rows, got %d", len(rows))
	}
	want := []string{"Medlock Bridge", "Windward", "Seven Oaks"}
	for i, name := range want {
		if rows[i]["neighborhood"] != name {
			t.Fatalf("row %d = %v, want %s", i, rows[i]["neighborhood"], name)
		}
	}
	if rows[2]["roi"] != 0.0 || rows[2]["totalSpent"] != 0.0 {
		t.Fatalf("expected zero-spend row to report roi 0, got %v", rows[2])
	}
}

func TestLeadWithoutNeighborhoodCreatesNoRow(t *testing.T) {
	f := newMarketingFixture(t)
	f.createLead(t, "", "Johns Creek", nil)
	f.createLead(t, "Windward", "", nil)

	if rows := f.items(t, "/api/marketing/neighborhoods"); len(rows) != 0 {
		t.Fatalf("expected no performance rows, got %v", rows)
	}
}

func TestCampaignSpendChangeRefreshesRows(t *testing.T) {
	f := newMarketingFixture(t)
	id := f.createCampaign(t, "Windward Search", 100, "Windward")
	f.createLead(t, "Windward", "Alpharetta", nil)

	row := f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Windward/Alpharetta", nil, http.StatusOK)
	if row["totalSpent"] != 100.0 {
		t.Fatalf("expected spend 100, got %v", row["totalSpent"])
	}

	f.do(t, http.MethodPut, "/api/marketing/campaigns/"+id, map[string]any{"spent": 250}, http.StatusOK)
	row = f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Windward/Alpharetta", nil, http.StatusOK)
	if row["totalSpent"] != 250.0 || row["avgCostPerLead"] != 250.0 {
		t.Fatalf("expected refreshed spend, got %v", row)
	}

	f.do(t, http.MethodPut, "/api/marketing/campaigns/"+id, map[string]any{"targetArea": []string{"Seven Oaks"}}, http.StatusOK)
	row = f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Windward/Alpharetta", nil, http.StatusOK)
	if row["totalCampaigns"] != 0.0 || row["totalSpent"] != 0.0 {
		t.Fatalf("expected campaign to drop out of Windward, got %v", row)
	}

	f.do(t, http.MethodDelete, "/api/marketing/campaigns/"+id, nil, http.StatusOK)
	f.do(t, http.MethodDelete, "/api/marketing/campaigns/"+id, nil, http.StatusNotFound)
}

func TestAdminRecompute(t *testing.T) {
	f := newMarketingFixture(t)
	f.createLead(t, "Seven Oaks", "Johns Creek", nil)

	row := f.do(t, http.MethodPost, "/api/marketing/neighborhoods/recompute", map[string]any{"neighborhood": "Seven Oaks", "city": "Johns Creek"}, http.StatusOK)
	if row["state"] != "GA" || row["totalLeads"] != 1.0 {
		t.Fatalf("unexpected recompute row: %v", row)
	}
	f.do(t, http.MethodPost, "/api/marketing/neighborhoods/recompute", map[string]any{"neighborhood": "Seven Oaks"}, http.StatusUnprocessableEntity)
}

func TestLeadValidationAndLookup(t *testing.T) {
	f := newMarketingFixture(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing first name", body: map[string]any{"lastName": "Reyes", "source": "NEXTDOOR"}},
		{name: "missing last name", body: map[string]any{"firstName": "Dana", "source": "NEXTDOOR"}},
		{name: "unknown source", body: map[string]any{"firstName": "Dana", "lastName": "Reyes", "source": "BILLBOARD"}},
		{name: "negative estimate", body: map[string]any{"firstName": "Dana", "lastName": "Reyes", "source": "NEXTDOOR", "estimatedValue": -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f.do(t, http.MethodPost, "/api/marketing/leads", tc.body, http.StatusUnprocessableEntity)
		})
	}

	f.do(t, http.MethodPost, "/api/marketing/leads", map[string]any{
		"firstName": "Dana", "lastName": "Reyes", "source": "NEXTDOOR", "campaignId": "cmp_missing",
	}, http.StatusUnprocessableEntity)

	id := f.createLead(t, "Windward", "Alpharetta", nil)
	f.do(t, http.MethodPut, "/api/marketing/leads/"+id, map[string]any{"status": "MAYBE"}, http.StatusUnprocessableEntity)
	f.do(t, http.MethodPut, "/api/marketing/leads/lead_missing", map[string]any{"status": "WON"}, http.StatusNotFound)
	f.do(t, http.MethodGet, "/api/marketing/leads/lead_missing", nil, http.StatusNotFound)

	lead := f.do(t, http.MethodGet, "/api/marketing/leads/"+id, nil, http.StatusOK)
	if lead["priority"] != "MEDIUM" || lead["status"] != "NEW" {
		t.Fatalf("unexpected defaults: %v", lead)
	}

	leads := f.items(t, "/api/marketing/leads?neighborhood=Windward")
	if len(leads) != 1 || leads[0]["id"] != id {
		t.Fatalf("unexpected filtered leads: %v", leads)
	}

	results := f.do(t, http.MethodGet, "/api/marketing/leads/search?q=Windward", nil, http.StatusOK)
	if results["engine"] != "sql" || results["total"] != 1.0 {
		t.Fatalf("unexpected search response: %v", results)
	}

	results = f.do(t, http.MethodGet, "/api/marketing/leads/search?q=Windward&offset=-1", nil, http.StatusOK)
	if hits, _ := results["results"].([]any); results["total"] != 1.0 || len(hits) != 1 {
		t.Fatalf("expected negative offset to read from the start, got %v", results)
	}
}

func TestNeighborhoodLookupDecodesPathOnce(t *testing.T) {
	f := newMarketingFixture(t)
	f.createLead(t, "Lot%41", "Johns Creek", nil)
	f.createLead(t, "Oak/Hill", "Johns Creek", nil)

	row := f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Lot%2541/Johns%20Creek", nil, http.StatusOK)
	if row["neighborhood"] != "Lot%41" || row["totalLeads"] != 1.0 {
		t.Fatalf("unexpected row: %v", row)
	}
	row = f.do(t, http.MethodGet, "/api/marketing/neighborhoods/Oak%2FHill/Johns%20Creek", nil, http.StatusOK)
	if row["neighborhood"] != "Oak/Hill" {
		t.Fatalf("unexpected row: %v", row)
	}
	f.do(t, http.MethodGet, "/api/marketing/neighborhoods/LotA/Johns%20Creek", nil, http.StatusNotFound)
}

func TestLeadActivities(t *testing.T) {
	f := newMarketingFixture(t)
	id := f.createLead(t, "Windward", "Alpharetta", nil)

	created := f.do(t, http.MethodPost, "/api/marketing/leads/"+id+"/activities", map[string]any{
		"activityType": "call", "description": "Left voicemail",
	}, http.StatusCreated)
	if created["activityType"] != "CALL" || created["userId"] == nil {
		t.Fatalf("unexpected activity: %v", created)
	}
	f.do(t, http.MethodPost, "/api/marketing/leads/"+id+"/activities", map[string]any{"activityType": "CALL"}, http.StatusUnprocessableEntity)
	f.do(t, http.MethodPost, "/api/marketing/leads/lead_missing/activities", map[string]any{"activityType": "CALL", "description": "x"}, http.StatusNotFound)

	if items := f.items(t, "/api/marketing/leads/"+id+"/activities"); len(items) != 1 {
		t.Fatalf("expected one activity, got %d", len(items))
	}
}

func TestBudgetPlans(t *testing.T) {
	f := newMarketingFixture(t)

	first := f.do(t, http.MethodPost, "/api/marketing/budget-plans", map[string]any{
		"name": "Starter", "tier": "starter", "monthlyBudget": 1000, "projectedRevenue": 8000,
	}, http.StatusCreated)
	if first["active"] != true || first["projectedRoi"] != 8.0 || first["tier"] != "STARTER" {
		t.Fatalf("unexpected plan: %v", first)
	}
	f.do(t, http.MethodPost, "/api/marketing/budget-plans", map[string]any{"name": "Growth", "monthlyBudget": 2500}, http.StatusCreated)
	f.do(t, http.MethodPost, "/api/marketing/budget-plans", map[string]any{"name": ""}, http.StatusUnprocessableEntity)

	plans := f.items(t, "/api/marketing/budget-plans")
	if len(plans) != 2 {
		t.Fatalf("expected two plans, got %d", len(plans))
	}
	active := 0
	for _, plan := range plans {
		if plan["active"] == true {
			active++
			if plan["name"] != "Growth" {
				t.Fatalf("expected Growth to be the active plan, got %v", plan["name"])
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected one active plan, got %d", active)
	}
}

func TestCampaignValidation(t *testing.T) {
	f := newMarketingFixture(t)
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing name", body: map[string]any{"platform": "NEXTDOOR", "startDate": "2026-03-01"}},
		{name: "bad platform", body: map[string]any{"name": "x", "platform": "BILLBOARD", "startDate": "2026-03-01"}},
		{name: "negative budget", body: map[string]any{"name": "x", "platform": "NEXTDOOR", "budget": -5, "startDate": "2026-03-01"}},
		{name: "missing start", body: map[string]any{"name": "x", "platform": "NEXTDOOR"}},
		{name: "bad start", body: map[string]any{"name": "x", "platform": "NEXTDOOR", "startDate": "March"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f.do(t, http.MethodPost, "/api/marketing/campaigns", tc.body, http.StatusUnprocessableEntity)
		})
	}
	f.do(t, http.MethodPut, "/api/marketing/campaigns/cmp_missing", map[string]any{"spent": 1}, http.StatusNotFound)
}
