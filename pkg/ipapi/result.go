package ipapi

import (
	"fmt"
	"strings"
)

// Status：查询结果状态，来自服务端的 "success"/"fail"
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

func parseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusSuccess, StatusFail:
		return Status(s), true
	}
	return "", false
}

// 文档注释：查询结果
// 背景：每个字段一个可空槽位；是否出现取决于请求的字段子集与服务端返回内容。
// 约束：所有槽位均可为空，空结果合法；Status 为 fail 时 Message 说明原因，此时属于正常解码结果而非错误。
// JSON 序列化使用线上名称并省略空槽位，与服务端响应格式一致。
type Result struct {
	AS           *string  `json:"as,omitempty"`
	City         *string  `json:"city,omitempty"`
	CountryCode  *string  `json:"countryCode,omitempty"`
	CountryName  *string  `json:"country,omitempty"`
	IP           *string  `json:"query,omitempty"`
	ISP          *string  `json:"isp,omitempty"`
	Latitude     *float64 `json:"lat,omitempty"`
	Longitude    *float64 `json:"lon,omitempty"`
	Message      *string  `json:"message,omitempty"`
	Mobile       *bool    `json:"mobile,omitempty"`
	Organization *string  `json:"org,omitempty"`
	Proxy        *bool    `json:"proxy,omitempty"`
	RegionCode   *string  `json:"region,omitempty"`
	RegionName   *string  `json:"regionName,omitempty"`
	Reverse      *string  `json:"reverse,omitempty"`
	Status       *Status  `json:"status,omitempty"`
	Timezone     *string  `json:"timezone,omitempty"`
	ZipCode      *string  `json:"zip,omitempty"`
}

// Succeeded：服务端明确返回 success
func (r *Result) Succeeded() bool {
	return r != nil && r.Status != nil && *r.Status == StatusSuccess
}

// Failed：服务端明确返回 fail
func (r *Result) Failed() bool {
	return r != nil && r.Status != nil && *r.Status == StatusFail
}

// Has：字段槽位是否有值
func (r *Result) Has(f Field) bool {
	if r == nil {
		return false
	}
	switch f {
	case FieldLatitude:
		return r.Latitude != nil
	case FieldLongitude:
		return r.Longitude != nil
	case FieldMobile:
		return r.Mobile != nil
	case FieldProxy:
		return r.Proxy != nil
	case FieldStatus:
		return r.Status != nil
	}
	if p := r.stringSlot(f); p != nil {
		return *p != nil
	}
	return false
}

// UnmarshalJSON：逐字段容错解码，见 DecodeResult
func (r *Result) UnmarshalJSON(b []byte) error {
	out, err := DecodeResult(b)
	if err != nil {
		return err
	}
	*r = *out
	return nil
}

// String：调试输出，仅包含有值的字段
func (r Result) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	n := 0
	for _, f := range AllFields() {
		if !r.Has(f) {
			continue
		}
		if n > 0 {
			sb.WriteString(", ")
		}
		n++
		fmt.Fprintf(&sb, "%s: %v", f, r.value(f))
	}
	sb.WriteByte('}')
	return sb.String()
}

func (r *Result) value(f Field) any {
	switch f {
	case FieldLatitude:
		return *r.Latitude
	case FieldLongitude:
		return *r.Longitude
	case FieldMobile:
		return *r.Mobile
	case FieldProxy:
		return *r.Proxy
	case FieldStatus:
		return *r.Status
	}
	return **r.stringSlot(f)
}

// stringSlot：字符串字段对应的槽位；非字符串字段返回 nil
func (r *Result) stringSlot(f Field) **string {
	switch f {
	case FieldAS:
		return &r.AS
	case FieldCity:
		return &r.City
	case FieldCountryCode:
		return &r.CountryCode
	case FieldCountryName:
		return &r.CountryName
	case FieldIP:
		return &r.IP
	case FieldISP:
		return &r.ISP
	case FieldMessage:
		return &r.Message
	case FieldOrganization:
		return &r.Organization
	case FieldRegionCode:
		return &r.RegionCode
	case FieldRegionName:
		return &r.RegionName
	case FieldReverse:
		return &r.Reverse
	case FieldTimezone:
		return &r.Timezone
	case FieldZipCode:
		return &r.ZipCode
	}
	return nil
}
