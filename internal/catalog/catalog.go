// Package catalog defines the fixed category matrix: five main categories,
// each owning an ordered list of sub-categories with their prompt cores and
// default style parameters.
//
// Both enums are closed. Values outside the declared constants are invalid
// and rejected when decoding.
package catalog

import "fmt"

// MainCategory is one of the five fixed generation surfaces.
type MainCategory int

const (
	Reply MainCategory = iota
	Opener
	Polish
	RolePlay
	LifeWiki

	mainCategoryCount
)

type mainInfo struct {
	token       string
	name        string
	icon        string
	description string
}

var mainCategories = [mainCategoryCount]mainInfo{
	Reply:    {"reply", "帮你回", "bubble.left.and.bubble.right.fill", "在已有对话中，接住对方话，不冷场、不掉地上"},
	Opener:   {"opener", "帮开场", "hand.wave.fill", "在刚加好友/冷场/不知怎么聊时，主动开启对话"},
	Polish:   {"polish", "帮润色", "paintbrush.pointed.fill", "用户已经写好一句话，AI帮他提升表达效果"},
	RolePlay: {"rolePlay", "角色代入", "theatermasks.fill", "同一问题，从不同专业身份角度回答"},
	LifeWiki: {"lifeWiki", "生活百科", "book.fill", "解决关于是什么、怎么做、值不值的各种疑问"},
}

// SubCategory is one of the 41 fixed sub-styles. Every value belongs to
// exactly one MainCategory.
type SubCategory int

const (
	// reply
	HighEQ SubCategory = iota
	Flirty
	Tease
	Polite
	PraiseReply
	ColdCEO
	Rational
	HumorResolve
	RoastMode

	// opener
	HumorBreaker
	CuriousQuestion
	MomentsCutIn
	DirectBall
	DailyChat
	LightPraise

	// polish
	Professional
	DeGreasy
	Literary
	Concise
	MoreEmotional
	Funnier
	MoreFormal
	MoreCasual

	// rolePlay
	Lawyer
	Doctor
	Programmer
	Accountant
	TopSales
	FitnessCoach
	Psychologist
	CareerMentor
	ProductManager
	ToxicCritic
	Philosopher
	LoveCoach

	// lifeWiki
	QuickExplain
	CoreSteps
	MythBuster
	ShoppingAdvice
	AvoidPitfalls
	ProsConsCompare

	subCategoryCount
)

type subInfo struct {
	main  MainCategory
	token string
	name  string
	core  string
	style StyleParams
}

func sp(ambiguity int, emoji EmojiDensity, length ContentLength) StyleParams {
	return NewStyleParams(ambiguity, emoji, length)
}

// Table order within a main category is the user-facing order.
var subCategories = [subCategoryCount]subInfo{
	HighEQ:       {Reply, "highEQ", "高情商", "读懂暗示、顺势回应。理解潜台词，避免生硬回应，保持关系温度。关键词：接话感、顺势、体面", sp(2, EmojiMedium, LengthMedium)},
	Flirty:       {Reply, "flirty", "暧昧", "制造轻微情绪波动。模糊表达，留有想象空间，不给确定结论。关键词：拉扯、若即若离", sp(5, EmojiHigh, LengthShort)},
	Tease:        {Reply, "tease", "撩拨", "打破平淡，增加互动刺激。轻微挑战，幽默反问，不正面顺从。关键词：调侃、反转、轻挑衅", sp(4, EmojiMedium, LengthShort)},
	Polite:       {Reply, "polite", "礼貌", "正式、安全、不越界。用词严谨，语气克制，无情绪冒进。适用：商务/长辈/半熟关系", sp(0, EmojiNone, LengthMedium)},
	PraiseReply:  {Reply, "praiseReply", "夸捧", "正向反馈，抬高对方感受。从对方话中找闪光点，真诚、不模板。禁止：无脑吹、假大空", sp(2, EmojiMedium, LengthMedium)},
	ColdCEO:      {Reply, "coldCEO", "高冷霸总", "极简风格，字少事大，自带威慑力。霸道总裁口吻，简短有力", sp(1, EmojiNone, LengthShort)},
	Rational:     {Reply, "rational", "理性回应", "不被情绪带着走。情绪降温，表达清楚立场，理性分析", sp(0, EmojiNone, LengthMedium)},
	HumorResolve: {Reply, "humorResolve", "幽默化解", "缓解尴尬或紧张。自嘲/情境幽默，不攻击对方", sp(2, EmojiMedium, LengthShort)},
	RoastMode:    {Reply, "roastMode", "怼人模式", "反击、立边界。不骂人，有逻辑、有分寸。禁止人身攻击，禁止低俗", sp(1, EmojiNone, LengthMedium)},

	HumorBreaker:    {Opener, "humorBreaker", "幽默破冰", "降低社交压力。冷笑话/生活观察，轻松有趣", sp(1, EmojiMedium, LengthShort)},
	CuriousQuestion: {Opener, "curiousQuestion", "好奇提问", "激发对方表达欲。开放式问题，不查户口", sp(1, EmojiLow, LengthShort)},
	MomentsCutIn:    {Opener, "momentsCutIn", "朋友圈切入", "模拟看过你动态的感觉。兴趣/场景切入，允许虚拟，不提我看了你朋友圈", sp(2, EmojiMedium, LengthShort)},
	DirectBall:      {Opener, "directBall", "直球进击", "明确、不绕。坦诚表达，礼貌不冒犯", sp(3, EmojiLow, LengthShort)},
	DailyChat:       {Opener, "dailyChat", "日常随聊", "最低风险开场。天气/近况/状态，自然轻松", sp(1, EmojiLow, LengthShort)},
	LightPraise:     {Opener, "lightPraise", "轻赞美开场", "快速建立好感。点到即止，不油腻", sp(2, EmojiMedium, LengthShort)},

	Professional:  {Polish, "professional", "职场精英", "口语→商务/公文。去情绪化，专业正式", sp(0, EmojiNone, LengthMedium)},
	DeGreasy:      {Polish, "deGreasy", "去油腻", "删除多余表情，减少感叹号，降低讨好感", sp(0, EmojiNone, LengthMedium)},
	Literary:      {Polish, "literary", "更有文采", "增强修辞，丰富词汇，偏书面表达", sp(1, EmojiLow, LengthLong)},
	Concise:       {Polish, "concise", "简洁有力", "长句变短句，合并重复表达，精简有力", sp(0, EmojiNone, LengthShort)},
	MoreEmotional: {Polish, "moreEmotional", "更深情", "强化情绪浓度，更有感染力", sp(3, EmojiMedium, LengthMedium)},
	Funnier:       {Polish, "funnier", "更幽默", "增加反差，轻调侃，让表达更有趣", sp(2, EmojiMedium, LengthMedium)},
	MoreFormal:    {Polish, "moreFormal", "更正式", "适合公告/通知/说明，正式规范", sp(0, EmojiNone, LengthLong)},
	MoreCasual:    {Polish, "moreCasual", "更随意", "更像真人聊天，降低写出来的感觉", sp(2, EmojiMedium, LengthMedium)},

	Lawyer:         {RolePlay, "lawyer", "律师角度", "严谨、逻辑缜密，侧重风险评估", sp(0, EmojiNone, LengthLong)},
	Doctor:         {RolePlay, "doctor", "医生角度", "冷静、专业，侧重健康建议与关怀", sp(0, EmojiNone, LengthLong)},
	Programmer:     {RolePlay, "programmer", "程序员角度", "逻辑化、极简，擅长排查问题", sp(0, EmojiNone, LengthMedium)},
	Accountant:     {RolePlay, "accountant", "会计角度", "精确、敏感，侧重利益与成本分析", sp(0, EmojiNone, LengthLong)},
	TopSales:       {RolePlay, "topSales", "金牌销售", "极具说服力，擅长引导需求和赞美", sp(2, EmojiMedium, LengthMedium)},
	FitnessCoach:   {RolePlay, "fitnessCoach", "健身教练", "充满活力，用鼓励和自律的语气说话", sp(1, EmojiMedium, LengthMedium)},
	Psychologist:   {RolePlay, "psychologist", "心理咨询师", "温暖、共情，侧重情绪疏导", sp(1, EmojiLow, LengthLong)},
	CareerMentor:   {RolePlay, "careerMentor", "职场导师", "经验丰富，给出职场发展建议", sp(0, EmojiNone, LengthMedium)},
	ProductManager: {RolePlay, "productManager", "产品经理", "结构化思维，注重用户体验和需求分析", sp(0, EmojiNone, LengthLong)},
	ToxicCritic:    {RolePlay, "toxicCritic", "毒舌评审", "犀利、直接，适合评价事物或求真相", sp(1, EmojiNone, LengthMedium)},
	Philosopher:    {RolePlay, "philosopher", "哲学大师", "深邃、辩证，凡事都要上升到本质", sp(1, EmojiNone, LengthLong)},
	LoveCoach:      {RolePlay, "loveCoach", "情感教练", "洞察人心，侧重社交策略与两性博弈", sp(3, EmojiLow, LengthMedium)},

	QuickExplain:    {LifeWiki, "quickExplain", "大概讲解", "200字以内的快速科普", sp(0, EmojiNone, LengthMedium)},
	CoreSteps:       {LifeWiki, "coreSteps", "核心步骤", "针对怎么做的问题，只给1、2、3清单", sp(0, EmojiNone, LengthMedium)},
	MythBuster:      {LifeWiki, "mythBuster", "辟谣专家", "科学分析输入内容的真伪", sp(0, EmojiNone, LengthMedium)},
	ShoppingAdvice:  {LifeWiki, "shoppingAdvice", "购物建议", "分析优缺点，给出买或不买的逻辑", sp(0, EmojiNone, LengthLong)},
	AvoidPitfalls:   {LifeWiki, "avoidPitfalls", "避坑指南", "揭露某个行业或场景下的常见套路", sp(0, EmojiNone, LengthLong)},
	ProsConsCompare: {LifeWiki, "prosConsCompare", "优劣对比", "提供A和B的多维度数据/体验对比", sp(0, EmojiNone, LengthLong)},
}

// byMain holds each main category's sub-categories in table order, and
// position the index of each sub-category within its own list.
var (
	byMain   [mainCategoryCount][]SubCategory
	position [subCategoryCount]int
)

func init() {
	for sc := SubCategory(0); sc < subCategoryCount; sc++ {
		m := subCategories[sc].main
		position[sc] = len(byMain[m])
		byMain[m] = append(byMain[m], sc)
	}
}

// MainCategories returns all main categories in slot order.
func MainCategories() []MainCategory {
	out := make([]MainCategory, mainCategoryCount)
	for i := range out {
		out[i] = MainCategory(i)
	}
	return out
}

// SubCategoryValues returns all 41 sub-categories.
func SubCategoryValues() []SubCategory {
	out := make([]SubCategory, subCategoryCount)
	for i := range out {
		out[i] = SubCategory(i)
	}
	return out
}

func (m MainCategory) Valid() bool { return m >= 0 && m < mainCategoryCount }

// Token is the wire token sent to the generation service.
func (m MainCategory) Token() string {
	if !m.Valid() {
		return fmt.Sprintf("MainCategory(%d)", int(m))
	}
	return mainCategories[m].token
}

func (m MainCategory) String() string { return m.Token() }

func (m MainCategory) DisplayName() string {
	if !m.Valid() {
		return ""
	}
	return mainCategories[m].name
}

func (m MainCategory) Icon() string {
	if !m.Valid() {
		return ""
	}
	return mainCategories[m].icon
}

func (m MainCategory) Description() string {
	if !m.Valid() {
		return ""
	}
	return mainCategories[m].description
}

// SubCategories returns the ordered sub-category list owned by m. The
// returned slice is a copy.
func (m MainCategory) SubCategories() []SubCategory {
	if !m.Valid() {
		return nil
	}
	return append([]SubCategory(nil), byMain[m]...)
}

// SubCategoryAt returns the sub-category at index within m's list.
func (m MainCategory) SubCategoryAt(index int) (SubCategory, bool) {
	if !m.Valid() || index < 0 || index >= len(byMain[m]) {
		return 0, false
	}
	return byMain[m][index], true
}

// DefaultSubCategory is the first entry of m's list.
func (m MainCategory) DefaultSubCategory() SubCategory {
	if !m.Valid() {
		return HighEQ
	}
	return byMain[m][0]
}

func (m MainCategory) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid main category %d", int(m))
	}
	return []byte(m.Token()), nil
}

func (m *MainCategory) UnmarshalText(text []byte) error {
	v, err := ParseMainCategory(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMainCategory resolves a wire token such as "rolePlay".
func ParseMainCategory(token string) (MainCategory, error) {
	for i, info := range mainCategories {
		if info.token == token {
			return MainCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown main category %q", token)
}

func (s SubCategory) Valid() bool { return s >= 0 && s < subCategoryCount }

// Token is the wire token sent to the generation service.
func (s SubCategory) Token() string {
	if !s.Valid() {
		return fmt.Sprintf("SubCategory(%d)", int(s))
	}
	return subCategories[s].token
}

func (s SubCategory) String() string { return s.Token() }

// DisplayName is the user-facing label. It doubles as the candidate tag.
func (s SubCategory) DisplayName() string {
	if !s.Valid() {
		return ""
	}
	return subCategories[s].name
}

func (s SubCategory) PromptCore() string {
	if !s.Valid() {
		return ""
	}
	return subCategories[s].core
}

func (s SubCategory) DefaultStyleParams() StyleParams {
	if !s.Valid() {
		return DefaultStyleParams()
	}
	return subCategories[s].style
}

// MainCategory returns the category that owns s.
func (s SubCategory) MainCategory() MainCategory {
	if !s.Valid() {
		return Reply
	}
	return subCategories[s].main
}

// Index is the position of s within its main category's list.
func (s SubCategory) Index() int {
	if !s.Valid() {
		return -1
	}
	return position[s]
}

func (s SubCategory) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sub category %d", int(s))
	}
	return []byte(s.Token()), nil
}

func (s *SubCategory) UnmarshalText(text []byte) error {
	v, err := ParseSubCategory(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSubCategory resolves a wire token such as "coldCEO".
func ParseSubCategory(token string) (SubCategory, error) {
	for i, info := range subCategories {
		if info.token == token {
			return SubCategory(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sub category %q", token)
}
