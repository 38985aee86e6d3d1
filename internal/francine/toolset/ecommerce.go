package toolset

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tansive/francine/internal/common/httpclient"
	"github.com/tansive/francine/internal/francine/config"
	"github.com/tansive/francine/internal/francine/tools"
)

const (
	productResults    = 5
	shopifyAPIVersion = "2024-01"
)

var (
	productSel = mustSelector(`a[itemprop="url"]`)
	videoSel   = mustSelector(`div[data-e2e="search-video-item"]`)
	validate   = validator.New()
)

// Product is one product_research_ali hit.
type Product struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Video is one tiktok_trend_scrape hit.
type Video struct {
	Title string `json:"title"`
}

// ProfitInput are the profit_calc arguments.
type ProfitInput struct {
	Revenue float64 `json:"revenue" validate:"gte=0"`
	COGS    float64 `json:"cogs" validate:"gte=0"`
	Ship    float64 `json:"ship" validate:"gte=0"`
	Ads     float64 `json:"ads" validate:"gte=0"`
}

// Profit is revenue less the cost of goods, shipping and advertising.
func Profit(in ProfitInput) (float64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, ErrInvalidInput.MsgErr("profit_calc amounts must not be negative", err)
	}
	return in.Revenue - (in.COGS + in.Ship + in.Ads), nil
}

// Commerce holds the e-commerce tools.
type Commerce struct {
	web     *Web
	shopify config.ShopifyConfig
	http    *httpclient.HTTPClient
}

// NewCommerce returns the e-commerce tool set. Shopify uploads need both a
// store URL and an access token.
func NewCommerce(web *Web, shopify config.ShopifyConfig) *Commerce {
	return &Commerce{web: web, shopify: shopify, http: web.http}
}

// ResearchAliExpress returns the first product links for keywords.
func (c *Commerce) ResearchAliExpress(ctx context.Context, keywords string) ([]Product, error) {
	if strings.TrimSpace(keywords) == "" {
		return nil, ErrInvalidInput.Msg("keywords are empty")
	}
	doc, err := c.web.fetchHTML(ctx, c.web.endpoints.AliExpress, map[string]string{"SearchText": keywords})
	if err != nil {
		return nil, err
	}
	products := []Product{}
	for _, n := range selectAll(doc, productSel) {
		if len(products) >= productResults {
			break
		}
		products = append(products, Product{Title: attr(n, "title"), Link: attr(n, "href")})
	}
	return products, nil
}

// TikTokTrends returns the titles of the first videos on a hashtag page.
func (c *Commerce) TikTokTrends(ctx context.Context, tag string) ([]Video, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, ErrInvalidInput.Msg("hashtag is empty")
	}
	doc, err := c.web.fetchHTML(ctx, strings.TrimSuffix(c.web.endpoints.TikTok, "/")+"/"+url.PathEscape(tag), nil)
	if err != nil {
		return nil, err
	}
	videos := []Video{}
	for _, n := range selectAll(doc, videoSel) {
		if len(videos) >= productResults {
			break
		}
		videos = append(videos, Video{Title: textContent(n)})
	}
	return videos, nil
}

// UploadShopify creates a product in the configured store and returns its
// ID.
func (c *Commerce) UploadShopify(ctx context.Context, product map[string]any) (string, error) {
	if c.shopify.StoreURL == "" || c.shopify.AccessToken == "" {
		return "", ErrNotConfigured.Msg("Shopify is not configured; set tools.shopify.store_url and SHOPIFY_ACCESS_TOKEN")
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return "", ErrInvalidInput.MsgErr("product is not JSON encodable", err)
	}
	body, err := sjson.SetRawBytes([]byte(`{}`), "product", raw)
	if err != nil {
		return "", ErrInvalidInput.Err(err)
	}
	endpoint := strings.TrimSuffix(c.shopify.StoreURL, "/") + "/admin/api/" + shopifyAPIVersion + "/products.json"
	data, err := c.http.DoRequest(ctx, httpclient.RequestOptions{
		Method:  http.MethodPost,
		Path:    endpoint,
		Body:    body,
		Headers: map[string]string{"X-Shopify-Access-Token": c.shopify.AccessToken},
	})
	if err != nil {
		return "", ErrFetchFailed.MsgErr("shopify product upload failed", err)
	}
	id := gjson.GetBytes(data, "product.id")
	if !id.Exists() {
		return "", ErrFetchFailed.Msg("shopify response did not include a product id")
	}
	return id.String(), nil
}

// Tools returns the e-commerce tools.
func (c *Commerce) Tools() []tools.Tool {
	return []tools.Tool{
		tools.New("product_research_ali", "Searches AliExpress for products based on keywords and returns a list of product details.", tools.FamilyRawHits,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return c.ResearchAliExpress(ctx, tools.StringArg(args, "kw", ""))
			}),
			tools.Required("kw", "string", "Keywords for product search."),
		).WithBlocking(),
		tools.New("tiktok_trend_scrape", "Scrapes TikTok for trending videos/data related to a given hashtag.", tools.FamilyRawHits,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				return c.TikTokTrends(ctx, tools.StringArg(args, "tag", ""))
			}),
			tools.Required("tag", "string", "The hashtag to scrape TikTok trends for."),
		).WithBlocking(),
		tools.New("profit_calc", "Calculates potential profit given revenue, cost of goods sold, shipping, and advertising costs.", tools.FamilyCalc,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				var in ProfitInput
				if err := tools.DecodeArgs(args, &in); err != nil {
					return nil, err
				}
				return Profit(in)
			}),
			tools.Required("revenue", "number", "Total revenue from sales."),
			tools.Required("cogs", "number", "Cost of Goods Sold."),
			tools.Required("ship", "number", "Shipping cost."),
			tools.Required("ads", "number", "Advertising cost."),
		),
		tools.New("shopify_api_upload", "Uploads product data to Shopify via API and returns the product ID.", tools.FamilyGeneric,
			tools.CapabilityFunc(func(ctx context.Context, args map[string]any) (any, error) {
				product, _ := args["prod_json"].(map[string]any)
				return c.UploadShopify(ctx, product)
			}),
			tools.Required("prod_json", "object", "JSON object representing product data."),
		).WithBlocking(),
	}
}
