package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"bharatcrm_backend/platform/apperr"

	"golang.org/x/sync/errgroup"
)

const (
	graphBaseURL = "https://graph.facebook.com/v19.0"

	// graphScanConcurrency caps parallel Graph API calls when fanning out
	// over campaigns and ads.
	graphScanConcurrency = 6
)

// GraphClient talks to the Meta Graph API for lead retrieval and
// campaign/form discovery.
type GraphClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewGraphClient() *GraphClient {
	return &GraphClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    graphBaseURL,
	}
}

// LeadgenField is one entry of a Lead Ads submission's field_data.
type LeadgenField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// LeadgenDetails is the Graph API response for a leadgen id.
type LeadgenDetails struct {
	ID           string         `json:"id"`
	CreatedTime  string         `json:"created_time"`
	FieldData    []LeadgenField `json:"field_data"`
	CampaignID   string         `json:"campaign_id"`
	CampaignName string         `json:"campaign_name"`
	FormID       string         `json:"form_id"`
	AdID         string         `json:"ad_id"`
	PageID       string         `json:"page_id"`
}

// FetchLeadgen retrieves the submitted field data for a leadgen id.
func (g *GraphClient) FetchLeadgen(ctx context.Context, leadgenID, accessToken string) (*LeadgenDetails, error) {
	params := url.Values{}
	params.Set("fields", "id,created_time,field_data,campaign_id,campaign_name,form_id,ad_id,page_id")
	params.Set("access_token", accessToken)

	var details LeadgenDetails
	if err := g.get(ctx, "/"+url.PathEscape(leadgenID), params, &details); err != nil {
		return nil, err
	}
	if details.ID == "" {
		return nil, apperr.Upstream("Graph API returned no lead data")
	}
	return &details, nil
}

// GraphCampaign is a campaign discovered on the connected ad account.
type GraphCampaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// GraphForm is a Lead Ads form discovered on the connected page.
type GraphForm struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	CampaignID string `json:"campaign_id,omitempty"`
}

type graphList[T any] struct {
	Data   []T `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// ListCampaigns returns the campaigns of an ad account.
func (g *GraphClient) ListCampaigns(ctx context.Context, adAccountID, accessToken string) ([]GraphCampaign, error) {
	params := url.Values{}
	params.Set("fields", "id,name,status")
	params.Set("access_token", accessToken)

	var out graphList[GraphCampaign]
	if err := g.get(ctx, "/"+url.PathEscape(adAccountID)+"/campaigns", params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListForms returns the Lead Ads forms of a page, then scans the page's
// campaigns in parallel to attribute each form to the campaign running it.
// The scan fans out with bounded concurrency; a failed campaign scan is
// skipped rather than failing the whole listing.
func (g *GraphClient) ListForms(ctx context.Context, pageID, adAccountID, accessToken string) ([]GraphForm, error) {
	params := url.Values{}
	params.Set("fields", "id,name,status")
	params.Set("access_token", accessToken)

	var forms graphList[GraphForm]
	if err := g.get(ctx, "/"+url.PathEscape(pageID)+"/leadgen_forms", params, &forms); err != nil {
		return nil, err
	}
	if adAccountID == "" || len(forms.Data) == 0 {
		return forms.Data, nil
	}

	campaigns, err := g.ListCampaigns(ctx, adAccountID, accessToken)
	if err != nil {
		return forms.Data, nil
	}

	var mu sync.Mutex
	formCampaign := make(map[string]string)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(graphScanConcurrency)
	for _, campaign := range campaigns {
		grp.Go(func() error {
			formIDs, err := g.campaignFormIDs(grpCtx, campaign.ID, accessToken)
			if err != nil {
				return nil
			}
			mu.Lock()
			for _, formID := range formIDs {
				formCampaign[formID] = campaign.ID
			}
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()

	out := make([]GraphForm, len(forms.Data))
	for i, form := range forms.Data {
		form.CampaignID = formCampaign[form.ID]
		out[i] = form
	}
	return out, nil
}

// campaignFormIDs walks a campaign's ads and collects the lead form ids
// referenced by their creatives.
func (g *GraphClient) campaignFormIDs(ctx context.Context, campaignID, accessToken string) ([]string, error) {
	params := url.Values{}
	params.Set("fields", "id,creative{object_story_spec}")
	params.Set("access_token", accessToken)

	var ads graphList[struct {
		ID       string `json:"id"`
		Creative struct {
			ObjectStorySpec struct {
				LinkData struct {
					CallToAction struct {
						Value struct {
							LeadGenFormID string `json:"lead_gen_form_id"`
						} `json:"value"`
					} `json:"call_to_action"`
				} `json:"link_data"`
			} `json:"object_story_spec"`
		} `json:"creative"`
	}]
	if err := g.get(ctx, "/"+url.PathEscape(campaignID)+"/ads", params, &ads); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(ads.Data))
	for _, ad := range ads.Data {
		if id := ad.Creative.ObjectStorySpec.LinkData.CallToAction.Value.LeadGenFormID; id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *GraphClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Graph API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		msg := ge.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("Graph API returned status %d", resp.StatusCode)
		}
		return apperr.Upstream(msg)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
