package tourPlan

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

const domesticSystemPrompt = `你是一名專業的「國內團體旅遊商品企劃系統」。
請依據規範產出可直接販售的國內團體旅遊行程。
行程天數 1-4 日，動線順暢，標註飯店名稱或等級。
景點應為國內合法開放景區，內容強調體驗與文化。
每一天請提供 imageUrl 作為配圖關鍵字（英文），imagePosition 為 left、right 或 bottom，imageCount 為 1 到 4。
輸出必須為 JSON 格式。`

const internationalSystemPrompt = `你是一名專業的「國外團體旅遊商品企劃系統」。
請依據規範產出可直接販售的國外團體旅遊行程。
必須包含國家/城市標示（countryCity），合理安排航班（flightInfo 去程與回程）、轉機與時差。
內容包含世界遺產、特色體驗、美食。
每一天請提供 imageUrl 作為配圖關鍵字（英文），imagePosition 為 left、right 或 bottom，imageCount 為 1 到 4。
輸出必須為 JSON 格式。`

func systemPrompt(category types.TourType) string {
	if category == types.TourTypeInternational {
		return internationalSystemPrompt
	}
	return domesticSystemPrompt
}

func generatePlanPrompt(req PlanRequest) string {
	var b strings.Builder
	b.WriteString("請根據以下資訊產出行程：\n")
	fmt.Fprintf(&b, "商品名稱: %s\n", strings.TrimSpace(req.ProductName))
	fmt.Fprintf(&b, "類型: %s\n", req.Category.Label())
	if extra := strings.TrimSpace(req.ExtraText); extra != "" {
		fmt.Fprintf(&b, "參考資料或額外要求: %s\n", extra)
	}
	if req.Reference != nil {
		fmt.Fprintf(&b, "另附參考檔案: %s\n", req.Reference.Name)
	}
	b.WriteString("\n請確保內容符合專業旅遊企劃書水準，語氣專業且吸引人。")
	return b.String()
}

func referenceTextPrompt(ref *types.ReferenceFile) string {
	return fmt.Sprintf("參考檔案 %s 內容如下：\n%s", ref.Name, string(ref.Data))
}
