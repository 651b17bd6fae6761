package hero

var defaultRoster = []Hero{
	{Name: "Liu Bei", Pack: "standard", Gender: "male", Camp: CampShu, HP: 4, Monarch: true},
	{Name: "Guan Yu", Pack: "standard", Gender: "male", Camp: CampShu, HP: 4},
	{Name: "Zhang Fei", Pack: "standard", Gender: "male", Camp: CampShu, HP: 4},
	{Name: "Zhuge Liang", Pack: "standard", Gender: "male", Camp: CampShu, HP: 3},
	{Name: "Zhao Yun", Pack: "standard", Gender: "male", Camp: CampShu, HP: 4},
	{Name: "Ma Chao", Pack: "standard", Gender: "male", Camp: CampShu, HP: 4},
	{Name: "Huang Yueying", Pack: "standard", Gender: "female", Camp: CampShu, HP: 3},
	{Name: "Cao Cao", Pack: "standard", Gender: "male", Camp: CampWei, HP: 4, Monarch: true},
	{Name: "Sima Yi", Pack: "standard", Gender: "male", Camp: CampWei, HP: 3},
	{Name: "Xiahou Dun", Pack: "standard", Gender: "male", Camp: CampWei, HP: 4},
	{Name: "Zhang Liao", Pack: "standard", Gender: "male", Camp: CampWei, HP: 4},
	{Name: "Xu Chu", Pack: "standard", Gender: "male", Camp: CampWei, HP: 4},
	{Name: "Guo Jia", Pack: "standard", Gender: "male", Camp: CampWei, HP: 3},
	{Name: "Zhen Ji", Pack: "standard", Gender: "female", Camp: CampWei, HP: 3},
	{Name: "Sun Quan", Pack: "standard", Gender: "male", Camp: CampWu, HP: 4, Monarch: true},
	{Name: "Gan Ning", Pack: "standard", Gender: "male", Camp: CampWu, HP: 4},
	{Name: "Lu Meng", Pack: "standard", Gender: "male", Camp: CampWu, HP: 4},
	{Name: "Huang Gai", Pack: "standard", Gender: "male", Camp: CampWu, HP: 4},
	{Name: "Zhou Yu", Pack: "standard", Gender: "male", Camp: CampWu, HP: 3},
	{Name: "Da Qiao", Pack: "standard", Gender: "female", Camp: CampWu, HP: 3},
	{Name: "Lu Xun", Pack: "standard", Gender: "male", Camp: CampWu, HP: 3},
	{Name: "Sun Shangxiang", Pack: "standard", Gender: "female", Camp: CampWu, HP: 3},
	{Name: "Hua Tuo", Pack: "standard", Gender: "male", Camp: CampQun, HP: 3},
	{Name: "Lu Bu", Pack: "standard", Gender: "male", Camp: CampQun, HP: 4},
	{Name: "Diao Chan", Pack: "standard", Gender: "female", Camp: CampQun, HP: 3},

	{Name: "Xiahou Yuan", Pack: "wind", Gender: "male", Camp: CampWei, HP: 4},
	{Name: "Cao Ren", Pack: "wind", Gender: "male", Camp: CampWei, HP: 4},
	{Name: "Huang Zhong", Pack: "wind", Gender: "male", Camp: CampShu, HP: 4},
	{Name: "Wei Yan", Pack: "wind", Gender: "male", Camp: CampShu, HP: 4},
	{Name: "Xiao Qiao", Pack: "wind", Gender: "female", Camp: CampWu, HP: 3},
	{Name: "Zhou Tai", Pack: "wind", Gender: "male", Camp: CampWu, HP: 4},
	{Name: "Zhang Jiao", Pack: "wind", Gender: "male", Camp: CampQun, HP: 3, Monarch: true},
	{Name: "Yu Ji", Pack: "wind", Gender: "male", Camp: CampQun, HP: 3},

	{Name: "Dian Wei", Pack: "fire", Gender: "male", Camp: CampWei, HP: 4},
	{Name: "Xun Yu", Pack: "fire", Gender: "male", Camp: CampWei, HP: 3},
	{Name: "Pang Tong", Pack: "fire", Gender: "male", Camp: CampShu, HP: 3},
	{Name: "Wolong", Pack: "fire", Gender: "male", Camp: CampShu, HP: 3},
	{Name: "Taishi Ci", Pack: "fire", Gender: "male", Camp: CampWu, HP: 4},
	{Name: "Yuan Shao", Pack: "fire", Gender: "male", Camp: CampQun, HP: 4, Monarch: true},
	{Name: "Pang De", Pack: "fire", Gender: "male", Camp: CampQun, HP: 4},
	{Name: "Yan Liang & Wen Chou", Pack: "fire", Gender: "male", Camp: CampQun, HP: 4},
}
