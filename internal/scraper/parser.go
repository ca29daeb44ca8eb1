package scraper

import (
	"encoding/json"
)

// RawSearchResponse is one decoded search page. Records stay raw so a single
// malformed item cannot fail the whole page.
type RawSearchResponse struct {
	Success bool           `json:"success"`
	Msg     string         `json:"msg"`
	Data    *rawSearchData `json:"data"`
}

type rawSearchData struct {
	Current   *int              `json:"current"`
	Size      *int              `json:"size"`
	Total     *int              `json:"total"`
	TotalPage *int              `json:"totalPage"`
	Records   []json.RawMessage `json:"records"`
}

type rawRecord struct {
	RCType Kind          `json:"rc_type"`
	Data   rawRecordData `json:"data"`
}

type rawRecordData struct {
	UserBrief     *rawUserBrief   `json:"userBrief"`
	FrequencyData *rawFrequency   `json:"frequencyData"`
	MomentData    json.RawMessage `json:"momentData"`
	ContentData   json.RawMessage `json:"contentData"`
}

type rawUserBrief struct {
	IdentityList []rawIdentity `json:"identityList"`
}

type rawIdentity struct {
	CompanyName string `json:"companyName"`
	JobName     string `json:"jobName"`
}

type rawFrequency struct {
	ViewCnt    int64 `json:"viewCnt"`
	LikeCnt    int64 `json:"likeCnt"`
	CommentCnt int64 `json:"commentCnt"`
}

type rawMoment struct {
	Title     string `json:"title"`
	UUID      string `json:"uuid"`
	CreatedAt int64  `json:"createdAt"`
	EditTime  int64  `json:"editTime"`
}

type rawContent struct {
	Title      string      `json:"title"`
	ID         json.Number `json:"id"`
	CreateTime int64       `json:"createTime"`
	EditTime   int64       `json:"editTime"`
}

// ParseSearchResponse maps a raw page to records. Items of unknown kind, or
// whose kind-specific object is missing or empty, are skipped.
func ParseSearchResponse(raw *RawSearchResponse) SearchPage {
	page := SearchPage{Current: 1, Records: []SearchRecord{}}
	if raw == nil || raw.Data == nil {
		return page
	}

	data := raw.Data
	page.Current = intOr(data.Current, 1)
	page.Size = intOr(data.Size, 0)
	page.Total = intOr(data.Total, 0)
	page.TotalPage = intOr(data.TotalPage, 0)

	for _, item := range data.Records {
		if rec, ok := parseRecord(item); ok {
			page.Records = append(page.Records, rec)
		}
	}
	return page
}

func parseRecord(item json.RawMessage) (SearchRecord, bool) {
	var r rawRecord
	if err := json.Unmarshal(item, &r); err != nil {
		return SearchRecord{}, false
	}

	var freq rawFrequency
	if r.Data.FrequencyData != nil {
		freq = *r.Data.FrequencyData
	}
	var ident rawIdentity
	if r.Data.UserBrief != nil && len(r.Data.UserBrief.IdentityList) > 0 {
		ident = r.Data.UserBrief.IdentityList[0]
	}

	switch r.RCType {
	case KindMoment:
		var m rawMoment
		if !decodeObject(r.Data.MomentData, &m) {
			return SearchRecord{}, false
		}
		return newMomentRecord(m, freq, ident), true
	case KindContent:
		var c rawContent
		if !decodeObject(r.Data.ContentData, &c) {
			return SearchRecord{}, false
		}
		return newContentRecord(c, freq, ident), true
	default:
		return SearchRecord{}, false
	}
}

func newMomentRecord(m rawMoment, freq rawFrequency, ident rawIdentity) SearchRecord {
	return SearchRecord{
		Title:        m.Title,
		Kind:         KindMoment,
		UUID:         m.UUID,
		CreatedAt:    m.CreatedAt,
		EditTime:     m.EditTime,
		ViewCount:    freq.ViewCnt,
		LikeCount:    freq.LikeCnt,
		CommentCount: freq.CommentCnt,
		Company:      ident.CompanyName,
		JobTitle:     ident.JobName,
	}
}

func newContentRecord(c rawContent, freq rawFrequency, ident rawIdentity) SearchRecord {
	return SearchRecord{
		Title:        c.Title,
		Kind:         KindContent,
		ContentID:    c.ID.String(),
		CreatedAt:    c.CreateTime,
		EditTime:     c.EditTime,
		ViewCount:    freq.ViewCnt,
		LikeCount:    freq.LikeCnt,
		CommentCount: freq.CommentCnt,
		Company:      ident.CompanyName,
		JobTitle:     ident.JobName,
	}
}

// decodeObject fills v from raw only when raw is a non-empty JSON object.
func decodeObject(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
