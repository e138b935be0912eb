package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/financr/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionService creates pages in a Notion database.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties, children []notionapi.Block) (*notionapi.Page, error)
}

// NotionClient implements NotionService with the Notion API.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a client authenticated with token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreatePage creates a page in databaseID with the given properties and body.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties, children []notionapi.Block) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
		Children:   children,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// NotionSink files each export as a page in a Notion database. Summary
// figures become page properties and the rendered text becomes the body.
type NotionSink struct {
	notion     NotionService
	databaseID string
}

// NewNotionSink creates a sink writing to databaseID.
func NewNotionSink(notion NotionService, databaseID string) *NotionSink {
	return &NotionSink{notion: notion, databaseID: databaseID}
}

// Put implements Sink.
func (s *NotionSink) Put(ctx context.Context, obj Object) (string, error) {
	page, err := s.notion.CreatePage(ctx, s.databaseID, ReportToNotionProperties(obj.Report), textBlocks(obj.Content))
	if err != nil {
		return "", fmt.Errorf("Put: %w", err)
	}
	return page.URL, nil
}

// ReportToNotionProperties maps report summary fields to database columns.
func ReportToNotionProperties(r *domain.TaxReport) notionapi.Properties {
	if r == nil {
		r = &domain.TaxReport{}
	}

	props := notionapi.Properties{
		"Report": notionapi.TitleProperty{
			Title: richText(r.Name),
		},
		"Report ID": notionapi.RichTextProperty{
			RichText: richText(r.ID),
		},
		"Tax Year": notionapi.NumberProperty{
			Number: float64(r.TaxYear),
		},
		"Standard Deduction": notionapi.CheckboxProperty{
			Checkbox: r.UseStandardDeduction,
		},
	}

	if r.FilingStatus != "" {
		props["Filing Status"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: r.FilingStatus.Label()},
		}
	}
	if r.Status != "" {
		props["Status"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(r.Status)},
		}
	}

	for _, f := range domain.DerivedFields {
		props[f.Label()] = notionapi.NumberProperty{
			Number: r.Amount(f).Round(2).InexactFloat64(),
		}
	}

	if r.CalculatedAt != nil {
		at := notionapi.Date(r.CalculatedAt.UTC())
		props["Calculated"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &at},
		}
	}

	exported := notionapi.Date(time.Now().UTC())
	props["Exported"] = notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &exported},
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// textBlocks turns each non-empty line into a paragraph block.
func textBlocks(content string) []notionapi.Block {
	var blocks []notionapi.Block
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		blocks = append(blocks, notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{
				RichText: richText(line),
			},
		})
	}
	return blocks
}
