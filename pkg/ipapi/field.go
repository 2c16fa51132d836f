// 包 ipapi：ip-api.com 地理定位服务客户端，负责端点选择、请求编码与响应解码
package ipapi

import "strings"

// 文档注释：结果字段（封闭集合）
// 背景：对外使用语义名，线上协议使用 ip-api 的字段名；两者一一对应。
// 约束：取值仅限下方 18 个常量；新增字段需同步 wireNames 与 Result。
type Field int

const (
	FieldAS Field = iota
	FieldCity
	FieldCountryCode
	FieldCountryName
	FieldIP
	FieldISP
	FieldLatitude
	FieldLongitude
	FieldMessage
	FieldMobile
	FieldOrganization
	FieldProxy
	FieldRegionCode
	FieldRegionName
	FieldReverse
	FieldStatus
	FieldTimezone
	FieldZipCode
	fieldCount
)

// 语言参数的线上名称
const languageParam = "lang"

var wireNames = [fieldCount]string{
	FieldAS:           "as",
	FieldCity:         "city",
	FieldCountryCode:  "countryCode",
	FieldCountryName:  "country",
	FieldIP:           "query",
	FieldISP:          "isp",
	FieldLatitude:     "lat",
	FieldLongitude:    "lon",
	FieldMessage:      "message",
	FieldMobile:       "mobile",
	FieldOrganization: "org",
	FieldProxy:        "proxy",
	FieldRegionCode:   "region",
	FieldRegionName:   "regionName",
	FieldReverse:      "reverse",
	FieldStatus:       "status",
	FieldTimezone:     "timezone",
	FieldZipCode:      "zip",
}

var semanticNames = [fieldCount]string{
	FieldAS:           "as",
	FieldCity:         "city",
	FieldCountryCode:  "countryCode",
	FieldCountryName:  "countryName",
	FieldIP:           "ip",
	FieldISP:          "isp",
	FieldLatitude:     "latitude",
	FieldLongitude:    "longitude",
	FieldMessage:      "message",
	FieldMobile:       "mobile",
	FieldOrganization: "organization",
	FieldProxy:        "proxy",
	FieldRegionCode:   "regionCode",
	FieldRegionName:   "regionName",
	FieldReverse:      "reverse",
	FieldStatus:       "status",
	FieldTimezone:     "timezone",
	FieldZipCode:      "zipCode",
}

var byWireName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		m[wireNames[f]] = f
	}
	return m
}()

// WireName：返回字段的线上名称；未知字段返回空串
func (f Field) WireName() string {
	if !f.valid() {
		return ""
	}
	return wireNames[f]
}

// String：返回字段的语义名称
func (f Field) String() string {
	if !f.valid() {
		return ""
	}
	return semanticNames[f]
}

func (f Field) valid() bool { return f >= 0 && f < fieldCount }

// FieldFromWireName：按线上名称反查字段；无法识别时返回 false
func FieldFromWireName(s string) (Field, bool) {
	f, ok := byWireName[s]
	return f, ok
}

// FieldFromName：按语义名称或线上名称查找字段，供命令行参数解析使用
func FieldFromName(s string) (Field, bool) {
	s = strings.TrimSpace(s)
	for f := Field(0); f < fieldCount; f++ {
		if semanticNames[f] == s {
			return f, true
		}
	}
	return FieldFromWireName(s)
}

// AllFields：按声明顺序返回全部 18 个字段（每次返回新切片）
func AllFields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// JoinFields：按调用方顺序拼接线上名称，用于 fields 参数
func JoinFields(fields []Field) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := f.WireName(); w != "" {
			names = append(names, w)
		}
	}
	return strings.Join(names, ",")
}
